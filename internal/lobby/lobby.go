// internal/lobby/lobby.go
package lobby

import "sync"

// ConnectedUser is one connection's presence. Identity is the connection id alone; the username
// only travels along for display and for the game layer's turn queue.
type ConnectedUser struct {
	Username     string `json:"username"`
	ConnectionID string `json:"connectionId"`
}

// Same reports whether u and other are the same entry.
func (u ConnectedUser) Same(other ConnectedUser) bool {
	return u.ConnectionID == other.ConnectionID
}

// Status is the lobby-level state. NoLobby is only ever a lookup result.
type Status int

const (
	NoLobby Status = iota
	InLobby
	InGame
)

func (s Status) String() string {
	switch s {
	case InLobby:
		return "InLobby"
	case InGame:
		return "InGame"
	default:
		return "NoLobby"
	}
}

// Lobby is an ephemeral, capacity-bounded group of connections with exactly one host.
// ID, HostConnectionID, GameID and MaxPlayers never change after creation.
type Lobby struct {
	ID               string
	HostConnectionID string
	GameID           int
	MaxPlayers       int

	mu      sync.Mutex
	members []ConnectedUser // join order, unique by ConnectionID
	joined  map[string]uint64 // ConnectionID -> coordinator-wide join sequence
	status  Status
	closed  bool
}

func newLobby(id string, host ConnectedUser, gameID, maxPlayers int, seq uint64) *Lobby {
	return &Lobby{
		ID:               id,
		HostConnectionID: host.ConnectionID,
		GameID:           gameID,
		MaxPlayers:       maxPlayers,
		members:          []ConnectedUser{host},
		joined:           map[string]uint64{host.ConnectionID: seq},
		status:           InLobby,
	}
}

// indexOfUnsafe returns the position of the member with connID or -1. Assumes lock is held.
func (l *Lobby) indexOfUnsafe(connID string) int {
	for i, m := range l.members {
		if m.ConnectionID == connID {
			return i
		}
	}
	return -1
}

// membersUnsafe returns a copy of the roster. Assumes lock is held.
func (l *Lobby) membersUnsafe() []ConnectedUser {
	out := make([]ConnectedUser, len(l.members))
	copy(out, l.members)
	return out
}
