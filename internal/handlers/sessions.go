package handlers

import (
	"github.com/jason-s-yu/wordlobby/internal/game"
	"github.com/jason-s-yu/wordlobby/internal/hub"
	"github.com/jason-s-yu/wordlobby/internal/lobby"
	"github.com/sirupsen/logrus"
)

// sessions is the state both channels share. Every call or disconnect that touches a lobby runs
// under locks.Lock(lobbyID), which linearizes the two gateways per lobby. The lobby channel and
// the game channel keep separate broadcast groups because their connections differ.
type sessions struct {
	logger      *logrus.Logger
	lobbies     *lobby.Coordinator
	games       *game.Registry[*game.WordGame]
	locks       *lobby.KeyedMutex
	lobbyGroups *hub.Groups
	gameGroups  *hub.Groups
}

func newSessions(logger *logrus.Logger, lobbies *lobby.Coordinator) *sessions {
	return &sessions{
		logger:      logger,
		lobbies:     lobbies,
		games:       game.NewRegistry[*game.WordGame](),
		locks:       lobby.NewKeyedMutex(),
		lobbyGroups: hub.NewGroups(),
		gameGroups:  hub.NewGroups(),
	}
}

// closeLobbyLocked tells everyone on both channels the lobby is gone, empties both groups and
// drops the game and the lobby. Assumes locks.Lock(lobbyID) is held.
func (s *sessions) closeLobbyLocked(lobbyID string) {
	s.lobbyGroups.Broadcast(lobbyID, EventLobbyClosed)
	s.gameGroups.Broadcast(lobbyID, EventLobbyClosed)
	s.lobbyGroups.RemoveAll(lobbyID)
	s.gameGroups.RemoveAll(lobbyID)
	s.games.Remove(lobbyID)
	s.lobbies.RemoveLobby(lobbyID)
	s.logger.WithField("lobby", lobbyID).Info("lobby closed")
}

// userOf converts a connection to the lobby's member record.
func userOf(c *hub.Connection) lobby.ConnectedUser {
	return lobby.ConnectedUser{Username: c.Username, ConnectionID: c.ID}
}
