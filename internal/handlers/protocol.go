package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/wordlobby/internal/hub"
)

// ErrUnknownTarget is returned for invocations naming no operation of the channel.
var ErrUnknownTarget = errors.New("unknown invocation target")

// invocation is one client->server frame.
type invocation struct {
	Type      string            `json:"type"`
	ID        string            `json:"id"`
	Target    string            `json:"target"`
	Arguments []json.RawMessage `json:"arguments"`
}

// gateway is what the websocket plumbing needs from a channel.
type gateway interface {
	// OnConnect admits or rejects a freshly upgraded connection. A *closeError picks the close code.
	OnConnect(ctx context.Context, c *hub.Connection) error
	// Invoke runs one remote call. Expected failures come back inside the result; a non-nil error
	// means the call could not be served at all.
	Invoke(ctx context.Context, c *hub.Connection, target string, args []json.RawMessage) (any, error)
	OnDisconnect(c *hub.Connection)
}

// closeError rejects a connection with a specific websocket close code.
type closeError struct {
	code   websocket.StatusCode
	reason string
}

func (e *closeError) Error() string {
	return fmt.Sprintf("connection rejected (%d): %s", e.code, e.reason)
}

func reject(code websocket.StatusCode, reason string) error {
	return &closeError{code: code, reason: reason}
}

// decodeArgs unmarshals positional arguments into dst, requiring an exact count.
func decodeArgs(args []json.RawMessage, dst ...any) error {
	if len(args) != len(dst) {
		return fmt.Errorf("expected %d argument(s), got %d", len(dst), len(args))
	}
	for i := range dst {
		if err := json.Unmarshal(args[i], dst[i]); err != nil {
			return fmt.Errorf("argument %d: %w", i, err)
		}
	}
	return nil
}

// decodeLobbyID is the common single-argument form.
func decodeLobbyID(args []json.RawMessage) (string, error) {
	var lobbyID string
	err := decodeArgs(args, &lobbyID)
	return lobbyID, err
}

// firstRune returns the first rune of s, or 0 for an empty string.
func firstRune(s string) rune {
	for _, r := range s {
		return r
	}
	return 0
}
