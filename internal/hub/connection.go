package hub

import (
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// DefaultBuffer is the outbound queue depth used when none is configured.
const DefaultBuffer = 32

// Connection is one live client socket as seen by the gateways. Writes are queued on OutChan and
// drained by the transport's write pump, so a gateway never blocks on a slow client.
type Connection struct {
	ID string
	// Username is empty when the caller identity could not be resolved at connect time.
	Username string

	OutChan chan Message
	Cancel  func()

	logger *logrus.Logger

	mu     sync.RWMutex
	closed bool
}

// NewConnection creates a connection handle with a fresh random id.
func NewConnection(username string, buffer int, logger *logrus.Logger) *Connection {
	return NewConnectionWithID(uuid.NewString(), username, buffer, logger)
}

// NewConnectionWithID is NewConnection with a caller-chosen id.
func NewConnectionWithID(id, username string, buffer int, logger *logrus.Logger) *Connection {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Connection{
		ID:       id,
		Username: username,
		OutChan:  make(chan Message, buffer),
		logger:   logger,
	}
}

// Authenticated reports whether a caller identity is attached.
func (c *Connection) Authenticated() bool {
	return c.Username != ""
}

// Write pushes a message onto OutChan non-blockingly. Logs if the connection is closed or full.
func (c *Connection) Write(msg Message) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.OutChan <- msg:
		return true
	default:
		c.logger.WithFields(logrus.Fields{
			"conn":   c.ID,
			"type":   msg.Type,
			"target": msg.Target,
		}).Warn("outbound buffer full, dropped message")
		return false
	}
}

// Send is a convenience for writing an event frame.
func (c *Connection) Send(target string, args ...any) bool {
	return c.Write(Event(target, args...))
}

// Close closes OutChan and cancels the connection context. Safe to call more than once.
func (c *Connection) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.OutChan)
	cancel := c.Cancel
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
}
