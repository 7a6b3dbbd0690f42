// internal/lobby/coordinator.go
package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// The first two texts are shown to clients verbatim.
var (
	ErrLobbyNotFound    = errors.New("Could not find lobby")
	ErrLobbyFull        = errors.New("Lobby is full")
	ErrAlreadyMember    = errors.New("user is already a member of the lobby")
	ErrIDSpaceExhausted = errors.New("could not generate an unused lobby id")
)

// DefaultMaxIDAttempts bounds the generate-and-check loop in CreateLobby.
const DefaultMaxIDAttempts = 32

// GameCatalog resolves how many players a game type admits.
type GameCatalog interface {
	MaxPlayers(ctx context.Context, gameID int) (int, error)
}

// Coordinator owns the authoritative in-memory table of live lobbies.
// The table is guarded by mu; each Lobby guards its own roster and status.
type Coordinator struct {
	mu      sync.RWMutex
	lobbies map[string]*Lobby
	joinSeq atomic.Uint64

	ids           IDGenerator
	catalog       GameCatalog
	maxIDAttempts int
	logger        *logrus.Logger
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithMaxIDAttempts overrides DefaultMaxIDAttempts.
func WithMaxIDAttempts(n int) Option {
	return func(c *Coordinator) {
		if n > 0 {
			c.maxIDAttempts = n
		}
	}
}

// WithLogger sets the logger used for lifecycle messages.
func WithLogger(l *logrus.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCoordinator initializes and returns an empty Coordinator.
func NewCoordinator(ids IDGenerator, catalog GameCatalog, opts ...Option) *Coordinator {
	c := &Coordinator{
		lobbies:       make(map[string]*Lobby),
		ids:           ids,
		catalog:       catalog,
		maxIDAttempts: DefaultMaxIDAttempts,
		logger:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) get(lobbyID string) (*Lobby, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	l, ok := c.lobbies[lobbyID]
	return l, ok
}

// LobbyExists reports whether lobbyID names a live lobby.
func (c *Coordinator) LobbyExists(lobbyID string) bool {
	_, ok := c.get(lobbyID)
	return ok
}

// IsHost reports whether connID is the host connection of lobbyID. A user reconnecting with a
// new connection id is not the host any more.
func (c *Coordinator) IsHost(connID, lobbyID string) bool {
	l, ok := c.get(lobbyID)
	if !ok {
		return false
	}
	return l.HostConnectionID == connID
}

// Host returns the host's member record.
func (c *Coordinator) Host(lobbyID string) (ConnectedUser, bool) {
	l, ok := c.get(lobbyID)
	if !ok {
		return ConnectedUser{}, false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexOfUnsafe(l.HostConnectionID); i >= 0 {
		return l.members[i], true
	}
	return ConnectedUser{}, false
}

// CreateLobby stores a new lobby with user as sole member and host and returns its id.
// Catalog errors are returned unchanged.
func (c *Coordinator) CreateLobby(ctx context.Context, user ConnectedUser, gameID int) (string, error) {
	return c.CreateLobbyWith(ctx, user, gameID, nil)
}

// CreateLobbyWith is CreateLobby with a hook that runs before any other caller can see the new
// lobby. publish must not call back into c.
func (c *Coordinator) CreateLobbyWith(ctx context.Context, user ConnectedUser, gameID int, publish func(lobbyID string)) (string, error) {
	maxPlayers, err := c.catalog.MaxPlayers(ctx, gameID)
	if err != nil {
		return "", err
	}
	if maxPlayers < 1 {
		return "", fmt.Errorf("game %d admits %d players", gameID, maxPlayers)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for attempt := 0; attempt < c.maxIDAttempts; attempt++ {
		id := c.ids.NewID()
		if _, taken := c.lobbies[id]; taken {
			continue
		}
		c.lobbies[id] = newLobby(id, user, gameID, maxPlayers, c.joinSeq.Add(1))
		if publish != nil {
			publish(id)
		}
		c.logger.WithFields(logrus.Fields{
			"lobby": id,
			"host":  user.Username,
			"game":  gameID,
		}).Info("lobby created")
		return id, nil
	}
	return "", fmt.Errorf("%w after %d attempts", ErrIDSpaceExhausted, c.maxIDAttempts)
}

// AddToLobby inserts user and returns the roster as it was before the insertion.
func (c *Coordinator) AddToLobby(user ConnectedUser, lobbyID string) ([]ConnectedUser, error) {
	l, ok := c.get(lobbyID)
	if !ok {
		return nil, ErrLobbyNotFound
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil, ErrLobbyNotFound
	}
	if l.indexOfUnsafe(user.ConnectionID) >= 0 {
		return nil, ErrAlreadyMember
	}
	if len(l.members) >= l.MaxPlayers {
		return nil, ErrLobbyFull
	}
	before := l.membersUnsafe()
	l.members = append(l.members, user)
	l.joined[user.ConnectionID] = c.joinSeq.Add(1)
	return before, nil
}

// RemoveFromLobby drops user from lobbyID. Missing lobby or member is a no-op.
func (c *Coordinator) RemoveFromLobby(user ConnectedUser, lobbyID string) {
	l, ok := c.get(lobbyID)
	if !ok {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexOfUnsafe(user.ConnectionID); i >= 0 {
		l.members = append(l.members[:i], l.members[i+1:]...)
		delete(l.joined, user.ConnectionID)
	}
}

// RemoveLobby deletes lobbyID from the table. Missing lobby is a no-op.
func (c *Coordinator) RemoveLobby(lobbyID string) {
	c.mu.Lock()
	l, ok := c.lobbies[lobbyID]
	delete(c.lobbies, lobbyID)
	c.mu.Unlock()
	if !ok {
		return
	}

	l.mu.Lock()
	l.closed = true
	l.mu.Unlock()
	c.logger.WithField("lobby", lobbyID).Info("lobby removed")
}

// UsersInLobby returns the roster in join order, or an empty slice if lobbyID is unknown.
func (c *Coordinator) UsersInLobby(lobbyID string) []ConnectedUser {
	l, ok := c.get(lobbyID)
	if !ok {
		return []ConnectedUser{}
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.membersUnsafe()
}

// IsMember reports whether user's connection is on the roster of lobbyID.
func (c *Coordinator) IsMember(user ConnectedUser, lobbyID string) bool {
	l, ok := c.get(lobbyID)
	if !ok {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.indexOfUnsafe(user.ConnectionID) >= 0
}

// LobbyIDForUser finds the lobby whose roster holds user's connection.
func (c *Coordinator) LobbyIDForUser(user ConnectedUser) (string, bool) {
	return c.find(func(m ConnectedUser) bool { return m.Same(user) })
}

// LobbyIDForUsername finds the lobby username joined most recently. Game connections carry new
// connection ids, so the game layer resolves by name; a stale roster entry left behind by a
// lobby-channel drop loses to the newer join.
func (c *Coordinator) LobbyIDForUsername(username string) (string, bool) {
	if username == "" {
		return "", false
	}
	return c.find(func(m ConnectedUser) bool { return m.Username == username })
}

// find returns the live lobby holding the most recently joined member that satisfies match.
func (c *Coordinator) find(match func(ConnectedUser) bool) (string, bool) {
	c.mu.RLock()
	lobbies := make([]*Lobby, 0, len(c.lobbies))
	for _, l := range c.lobbies {
		lobbies = append(lobbies, l)
	}
	c.mu.RUnlock()

	var (
		bestID  string
		bestSeq uint64
	)
	for _, l := range lobbies {
		l.mu.Lock()
		if !l.closed {
			for _, m := range l.members {
				if seq := l.joined[m.ConnectionID]; match(m) && seq > bestSeq {
					bestID, bestSeq = l.ID, seq
				}
			}
		}
		l.mu.Unlock()
	}
	return bestID, bestSeq > 0
}

// StartGame moves lobbyID to InGame. Missing lobby is a no-op.
func (c *Coordinator) StartGame(lobbyID string) {
	l, ok := c.get(lobbyID)
	if !ok {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status = InGame
}

// Status returns the lobby state, NoLobby if lobbyID is unknown.
func (c *Coordinator) Status(lobbyID string) Status {
	l, ok := c.get(lobbyID)
	if !ok {
		return NoLobby
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.status
}

// Len returns the number of live lobbies.
func (c *Coordinator) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.lobbies)
}
