// internal/handlers/lobby_gateway.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jason-s-yu/wordlobby/internal/hub"
	"github.com/jason-s-yu/wordlobby/internal/lobby"
	"github.com/sirupsen/logrus"
)

// LobbyGateway serves the pre-game channel: creating, joining and leaving lobbies and the
// host's start signal.
type LobbyGateway struct {
	*sessions
}

// OnConnect admits every connection; nothing happens until the client calls something.
func (g *LobbyGateway) OnConnect(_ context.Context, c *hub.Connection) error {
	return nil
}

// Invoke routes a lobby-channel call.
func (g *LobbyGateway) Invoke(ctx context.Context, c *hub.Connection, target string, args []json.RawMessage) (any, error) {
	switch target {
	case "CreateLobby":
		var gameID int
		if err := decodeArgs(args, &gameID); err != nil {
			return nil, err
		}
		return g.CreateLobby(ctx, c, gameID)
	case "JoinLobby":
		lobbyID, err := decodeLobbyID(args)
		if err != nil {
			return nil, err
		}
		return g.JoinLobby(c, lobbyID), nil
	case "LeaveLobby":
		lobbyID, err := decodeLobbyID(args)
		if err != nil {
			return nil, err
		}
		return g.LeaveLobby(c, lobbyID), nil
	case "StartGame":
		lobbyID, err := decodeLobbyID(args)
		if err != nil {
			return nil, err
		}
		return g.StartGame(c, lobbyID), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
}

// CreateLobby makes the caller host of a new lobby for gameID. The lobby id travels in Message.
// Catalog failures are returned as errors.
func (g *LobbyGateway) CreateLobby(ctx context.Context, c *hub.Connection, gameID int) (Result, error) {
	if !c.Authenticated() {
		return fail(MsgAuthUnavailable), nil
	}
	user := userOf(c)
	if _, in := g.lobbies.LobbyIDForUser(user); in {
		return fail(MsgAlreadyInLobby), nil
	}

	// the host is subscribed before the id is visible, so no join broadcast can miss it
	lobbyID, err := g.lobbies.CreateLobbyWith(ctx, user, gameID, func(id string) {
		g.lobbyGroups.Add(id, c)
	})
	if err != nil {
		g.logger.WithFields(logrus.Fields{"conn": c.ID, "game": gameID}).Errorf("create lobby failed: %v", err)
		return Result{}, err
	}
	return ok(lobbyID), nil
}

// JoinLobby adds the caller to lobbyID. The joiner first receives one UserJoinedLobby per member
// already present (the host excluded), then the whole group, joiner included, is told about the
// join.
func (g *LobbyGateway) JoinLobby(c *hub.Connection, lobbyID string) Result {
	if !c.Authenticated() {
		return fail(MsgAuthUnavailable)
	}
	unlock := g.locks.Lock(lobbyID)
	defer unlock()

	switch g.lobbies.Status(lobbyID) {
	case lobby.NoLobby:
		return fail(MsgLobbyNotFound)
	case lobby.InGame:
		return fail(MsgLobbyInGame)
	}

	user := userOf(c)
	if _, in := g.lobbies.LobbyIDForUser(user); in {
		return fail(MsgAlreadyInLobby)
	}

	before, err := g.lobbies.AddToLobby(user, lobbyID)
	switch {
	case errors.Is(err, lobby.ErrLobbyFull):
		return fail(MsgLobbyFull)
	case errors.Is(err, lobby.ErrLobbyNotFound):
		return fail(MsgLobbyNotFound)
	case errors.Is(err, lobby.ErrAlreadyMember):
		return fail(MsgAlreadyInLobby)
	case err != nil:
		return fail(err.Error())
	}

	for _, member := range before {
		if g.lobbies.IsHost(member.ConnectionID, lobbyID) {
			continue
		}
		c.Send(EventUserJoinedLobby, member)
	}
	g.lobbyGroups.Add(lobbyID, c)
	g.lobbyGroups.Broadcast(lobbyID, EventUserJoinedLobby, user)

	g.logger.WithFields(logrus.Fields{"lobby": lobbyID, "user": user.Username}).Info("user joined lobby")
	return ok(lobbyID)
}

// LeaveLobby removes the caller from lobbyID; a leaving host closes the lobby.
func (g *LobbyGateway) LeaveLobby(c *hub.Connection, lobbyID string) Result {
	if !c.Authenticated() {
		return fail(MsgAuthUnavailable)
	}
	unlock := g.locks.Lock(lobbyID)
	defer unlock()

	if !g.lobbies.LobbyExists(lobbyID) {
		return fail(MsgLobbyNotFound)
	}
	g.removeUserLocked(c, lobbyID)
	return okEmpty()
}

// StartGame moves lobbyID into the game; only the host connection may do it.
func (g *LobbyGateway) StartGame(c *hub.Connection, lobbyID string) Result {
	if !c.Authenticated() {
		return fail(MsgAuthUnavailable)
	}
	unlock := g.locks.Lock(lobbyID)
	defer unlock()

	switch {
	case !g.lobbies.LobbyExists(lobbyID):
		return fail(MsgLobbyNotFound)
	case !g.lobbies.IsHost(c.ID, lobbyID):
		return fail(MsgNotHost)
	case g.lobbies.Status(lobbyID) == lobby.InGame:
		return fail(MsgLobbyInGame)
	}

	g.lobbies.StartGame(lobbyID)
	g.lobbyGroups.Broadcast(lobbyID, EventGameStarted)
	g.logger.WithField("lobby", lobbyID).Info("game started")
	return ok(lobbyID)
}

// OnDisconnect cleans up after a dropped lobby connection. While the lobby is in game only the
// broadcast subscription goes; the game channel owns the rest.
func (g *LobbyGateway) OnDisconnect(c *hub.Connection) {
	user := userOf(c)
	lobbyID, ok := g.lobbies.LobbyIDForUser(user)
	if !ok {
		return
	}
	unlock := g.locks.Lock(lobbyID)
	defer unlock()

	switch g.lobbies.Status(lobbyID) {
	case lobby.NoLobby:
		return
	case lobby.InGame:
		g.lobbyGroups.Remove(lobbyID, c.ID)
	default:
		g.removeUserLocked(c, lobbyID)
	}
}

// removeUserLocked is the shared leave procedure. Assumes locks.Lock(lobbyID) is held.
func (g *LobbyGateway) removeUserLocked(c *hub.Connection, lobbyID string) {
	user := userOf(c)
	if g.lobbies.IsHost(c.ID, lobbyID) {
		g.closeLobbyLocked(lobbyID)
		return
	}
	if !g.lobbies.IsMember(user, lobbyID) {
		return
	}
	g.lobbyGroups.Broadcast(lobbyID, EventUserLeftLobby, user)
	g.lobbyGroups.Remove(lobbyID, c.ID)
	g.lobbies.RemoveFromLobby(user, lobbyID)
	g.logger.WithFields(logrus.Fields{"lobby": lobbyID, "user": user.Username}).Info("user left lobby")
}
