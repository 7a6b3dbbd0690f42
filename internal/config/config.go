// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the process-wide configuration, read once at startup from the environment.
// A .env file in the working directory is picked up by godotenv/autoload in cmd/server.
type Config struct {
	Addr     string
	LogLevel string

	// TokenExpire is the JWT lifetime; 0 means tokens never expire.
	TokenExpire time.Duration

	// AuthPrivateKeyPath and AuthPublicKeyPath hold raw ed25519 keys shared with the token
	// issuer. Both or neither must be set; with neither, a throwaway pair is generated.
	AuthPrivateKeyPath string
	AuthPublicKeyPath  string

	LobbyIDDigits       int
	LobbyIDMaxAttempts  int
	MaxIncorrectGuesses int
	ConnectionBuffer    int

	Postgres Postgres

	RedisAddr        string
	RedisDB          int
	HistoryQueueName string

	// HistorianBatchSize and HistorianFlushDelay tune cmd/historian.
	HistorianBatchSize  int
	HistorianFlushDelay time.Duration
}

// Postgres holds the connection settings for the game catalog database.
type Postgres struct {
	User     string
	Password string
	Host     string
	Port     string
	Database string
}

// Enabled reports whether a catalog database was configured at all.
func (p Postgres) Enabled() bool {
	return p.Host != ""
}

// ConnString renders the settings as a postgres:// URL understood by pgxpool.
func (p Postgres) ConnString() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s", p.User, p.Password, p.Host, p.Port, p.Database)
}

// HasAuthKeys reports whether signing keys are loaded from disk.
func (c Config) HasAuthKeys() bool {
	return c.AuthPrivateKeyPath != "" && c.AuthPublicKeyPath != ""
}

// Load reads the configuration from environment variables, applying defaults for anything unset.
func Load() (Config, error) {
	cfg := Config{
		Addr:                ":" + getEnv("PORT", "8080"),
		LogLevel:            getEnv("LOG_LEVEL", "debug"),
		AuthPrivateKeyPath:  os.Getenv("AUTH_PRIVATE_KEY_PATH"),
		AuthPublicKeyPath:   os.Getenv("AUTH_PUBLIC_KEY_PATH"),
		LobbyIDDigits:       getEnvInt("LOBBY_ID_DIGITS", 6),
		LobbyIDMaxAttempts:  getEnvInt("LOBBY_ID_MAX_ATTEMPTS", 32),
		MaxIncorrectGuesses: getEnvInt("MAX_INCORRECT_GUESSES", 5),
		ConnectionBuffer:    getEnvInt("CONNECTION_BUFFER", 32),
		Postgres: Postgres{
			User:     os.Getenv("POSTGRES_USER"),
			Password: os.Getenv("POSTGRES_PASSWORD"),
			Host:     os.Getenv("PG_HOST"),
			Port:     getEnv("PG_PORT", "5432"),
			Database: os.Getenv("PG_DATABASE"),
		},
		RedisAddr:        os.Getenv("REDIS_ADDR"),
		RedisDB:          getEnvInt("REDIS_DB", 0),
		HistoryQueueName: getEnv("HISTORY_QUEUE_NAME", "wordlobby_rounds"),

		HistorianBatchSize:  getEnvInt("HISTORIAN_BATCH_SIZE", 20),
		HistorianFlushDelay: time.Duration(getEnvInt("HISTORIAN_FLUSH_MS", 500)) * time.Millisecond,
	}

	expire, err := parseTokenExpireTime(os.Getenv("TOKEN_EXPIRE_TIME"))
	if err != nil {
		return Config{}, err
	}
	cfg.TokenExpire = expire

	if (cfg.AuthPrivateKeyPath == "") != (cfg.AuthPublicKeyPath == "") {
		return Config{}, fmt.Errorf("AUTH_PRIVATE_KEY_PATH and AUTH_PUBLIC_KEY_PATH must be set together")
	}

	if cfg.LobbyIDDigits < 1 {
		return Config{}, fmt.Errorf("LOBBY_ID_DIGITS must be positive, got %d", cfg.LobbyIDDigits)
	}
	if cfg.LobbyIDMaxAttempts < 1 {
		return Config{}, fmt.Errorf("LOBBY_ID_MAX_ATTEMPTS must be positive, got %d", cfg.LobbyIDMaxAttempts)
	}
	if cfg.MaxIncorrectGuesses < 1 {
		return Config{}, fmt.Errorf("MAX_INCORRECT_GUESSES must be positive, got %d", cfg.MaxIncorrectGuesses)
	}
	return cfg, nil
}

// parseTokenExpireTime accepts "never", "0", "" (no expiry) or any time.ParseDuration string.
func parseTokenExpireTime(s string) (time.Duration, error) {
	if s == "never" || s == "0" || s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("failed to parse token expire time: %w", err)
	}
	return d, nil
}

// getEnv is a helper to read an environment variable or return a default value.
func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// getEnvInt is a helper to parse an environment variable as integer, else a default value.
func getEnvInt(key string, def int) int {
	s := os.Getenv(key)
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return v
}
