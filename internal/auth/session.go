// internal/auth/session.go
package auth

import (
	"crypto/ed25519"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// CookieName is the cookie carrying the session token; QueryParam is the fallback used by
// browser websocket clients that cannot attach cookies cross-origin.
const (
	CookieName = "auth_token"
	QueryParam = "access_token"
)

// privateKey and publicKey are used for signing and verifying JWT tokens.
var (
	keyMu      sync.RWMutex
	privateKey ed25519.PrivateKey
	publicKey  ed25519.PublicKey

	// tokenExpire is how long a token is valid for (0 => never).
	tokenExpire time.Duration
)

// Init generates a fresh ed25519 key pair at runtime and sets the token expiration.
func Init(expire time.Duration) error {
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		return fmt.Errorf("failed to generate ed25519 key pair: %w", err)
	}
	setKeys(priv, pub, expire)
	return nil
}

// InitFromPath reads ed25519 private/public keys from file and sets the token expiration.
func InitFromPath(privatePath, publicPath string, expire time.Duration) error {
	privateKeyData, err := os.ReadFile(privatePath)
	if err != nil {
		return fmt.Errorf("failed to read private key file: %w", err)
	}
	publicKeyData, err := os.ReadFile(publicPath)
	if err != nil {
		return fmt.Errorf("failed to read public key file: %w", err)
	}
	if len(privateKeyData) != ed25519.PrivateKeySize || len(publicKeyData) != ed25519.PublicKeySize {
		return errors.New("ed25519 key files have unexpected sizes")
	}
	setKeys(ed25519.PrivateKey(privateKeyData), ed25519.PublicKey(publicKeyData), expire)
	return nil
}

func setKeys(priv ed25519.PrivateKey, pub ed25519.PublicKey, expire time.Duration) {
	keyMu.Lock()
	defer keyMu.Unlock()
	privateKey, publicKey, tokenExpire = priv, pub, expire
}

// CreateJWT creates a signed JWT token with "sub" = username and, unless tokens never expire,
// an "exp" claim.
func CreateJWT(username string) (string, error) {
	keyMu.RLock()
	defer keyMu.RUnlock()
	if privateKey == nil {
		return "", errors.New("auth keys are not initialised")
	}

	claims := jwt.MapClaims{
		"sub": username,
	}
	if tokenExpire != 0 {
		claims["exp"] = time.Now().Add(tokenExpire).Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	return token.SignedString(privateKey)
}

// AuthenticateJWT verifies a JWT string, returns the "sub" field if valid, else an error.
func AuthenticateJWT(tokenString string) (string, error) {
	keyMu.RLock()
	key := publicKey
	keyMu.RUnlock()
	if key == nil {
		return "", errors.New("auth keys are not initialised")
	}

	t, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	})
	if err != nil {
		return "", fmt.Errorf("jwt parse error: %w", err)
	}
	if !t.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := t.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid jwt claims")
	}

	username, ok := claims["sub"].(string)
	if !ok || username == "" {
		return "", fmt.Errorf("missing sub in jwt")
	}

	return username, nil
}

// UsernameFromRequest resolves the caller identity of an upgrade request. It returns false when
// no token is present or the token does not verify; callers treat that as an anonymous connection.
func UsernameFromRequest(r *http.Request) (string, bool) {
	token := ""
	if c, err := r.Cookie(CookieName); err == nil {
		token = c.Value
	}
	if token == "" {
		token = r.URL.Query().Get(QueryParam)
	}
	if token == "" {
		return "", false
	}
	username, err := AuthenticateJWT(token)
	if err != nil {
		return "", false
	}
	return username, true
}
