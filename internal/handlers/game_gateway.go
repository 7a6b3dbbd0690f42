// internal/handlers/game_gateway.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jason-s-yu/wordlobby/internal/cache"
	"github.com/jason-s-yu/wordlobby/internal/game"
	"github.com/jason-s-yu/wordlobby/internal/hub"
	"github.com/jason-s-yu/wordlobby/internal/lobby"
	"github.com/sirupsen/logrus"
)

// RoundRecorder archives finished rounds. Implemented by cache.RoundPublisher.
type RoundRecorder interface {
	PublishRound(ctx context.Context, record cache.RoundRecord) error
}

// GameGateway serves the in-game channel of the word-guessing game.
type GameGateway struct {
	*sessions

	newGame  func() *game.WordGame
	recorder RoundRecorder

	// connLobby remembers which lobby each admitted connection was put in.
	connMu    sync.Mutex
	connLobby map[string]string
}

func newGameGateway(s *sessions, newGame func() *game.WordGame, recorder RoundRecorder) *GameGateway {
	if newGame == nil {
		newGame = func() *game.WordGame { return game.NewWordGame() }
	}
	return &GameGateway{
		sessions:  s,
		newGame:   newGame,
		recorder:  recorder,
		connLobby: make(map[string]string),
	}
}

// OnConnect admits the caller only when its lobby exists and is in game, and subscribes it to
// the lobby's game group.
func (g *GameGateway) OnConnect(_ context.Context, c *hub.Connection) error {
	if !c.Authenticated() {
		return reject(InvalidAuthTokenError, MsgAuthUnavailable)
	}
	lobbyID, ok := g.lobbies.LobbyIDForUsername(c.Username)
	if !ok {
		return reject(InvalidLobbyIDError, MsgLobbyNotFound)
	}

	unlock := g.locks.Lock(lobbyID)
	defer unlock()
	if g.lobbies.Status(lobbyID) != lobby.InGame {
		return reject(InvalidLobbyIDError, MsgLobbyNotInGame)
	}
	g.gameGroups.Add(lobbyID, c)
	g.connMu.Lock()
	g.connLobby[c.ID] = lobbyID
	g.connMu.Unlock()
	return nil
}

// Invoke routes a game-channel call.
func (g *GameGateway) Invoke(ctx context.Context, c *hub.Connection, target string, args []json.RawMessage) (any, error) {
	if target == "GuessLetter" {
		var lobbyID, letter string
		if err := decodeArgs(args, &lobbyID, &letter); err != nil {
			return nil, err
		}
		return g.GuessLetter(c, lobbyID, firstRune(letter)), nil
	}

	lobbyID, err := decodeLobbyID(args)
	if err != nil {
		return nil, err
	}
	switch target {
	case "StartGame":
		return g.StartGame(c, lobbyID), nil
	case "RestartGame":
		return g.RestartGame(c, lobbyID), nil
	case "GetUsersInGame":
		return g.GetUsersInGame(c, lobbyID), nil
	case "GetFrontPlayerForGame":
		return g.GetFrontPlayer(c, lobbyID), nil
	case "InitQueueForGame":
		return g.InitQueueForGame(c, lobbyID), nil
	case "LeaveGame":
		return g.LeaveGame(c, lobbyID), nil
	case "GetGuessedChars":
		return g.GetGuessedLetters(c, lobbyID), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownTarget, target)
	}
}

// StartGame creates the lobby's game, starts its first round and seeds the turn queue.
func (g *GameGateway) StartGame(c *hub.Connection, lobbyID string) Result {
	if !c.Authenticated() {
		return fail(MsgAuthUnavailable)
	}
	if !g.admittedTo(c, lobbyID) {
		return fail(MsgLobbyNotFound)
	}
	unlock := g.locks.Lock(lobbyID)
	defer unlock()

	if g.games.LobbyExists(lobbyID) {
		return fail(MsgGameAlreadyStarted)
	}
	switch g.lobbies.Status(lobbyID) {
	case lobby.NoLobby:
		return fail(MsgLobbyNotFound)
	case lobby.InLobby:
		return fail(MsgLobbyNotInGame)
	}

	wg := g.newGame()
	if err := g.games.Add(lobbyID, wg); err != nil {
		return fail(MsgGameAlreadyStarted)
	}
	length := wg.StartRound()
	wg.SeedQueue(g.rosterNames(lobbyID))

	g.gameGroups.Broadcast(lobbyID, EventGameStarted, length)
	g.logger.WithFields(logrus.Fields{
		"lobby":        lobbyID,
		"length":       length,
		"maxIncorrect": wg.MaxIncorrectGuesses(),
	}).Info("round started")
	return okEmpty()
}

// GuessLetter plays the caller's turn.
func (g *GameGateway) GuessLetter(c *hub.Connection, lobbyID string, letter rune) Result {
	if !c.Authenticated() {
		return fail(MsgAuthUnavailable)
	}
	if !g.admittedTo(c, lobbyID) {
		return fail(MsgLobbyNotFound)
	}
	unlock := g.locks.Lock(lobbyID)
	defer unlock()

	wg, found := g.games.TryGet(lobbyID)
	if !found {
		return fail(MsgLobbyNotFound)
	}

	res, err := wg.TakeTurn(c.Username, letter)
	switch {
	case errors.Is(err, game.ErrNotYourTurn):
		return fail(MsgNotYourTurn)
	case errors.Is(err, game.ErrRoundOver), errors.Is(err, game.ErrNoRound):
		return fail(MsgRoundOver)
	case err != nil:
		return fail(err.Error())
	}

	g.gameGroups.Broadcast(lobbyID, EventGuessResult, string(res.Letter), res.Correct, res.Positions)
	if wg.IsGameOver() {
		didWin, word := wg.DidWin(), wg.SecretWord()
		g.gameGroups.Broadcast(lobbyID, EventGameOver, didWin, word)
		g.logger.WithFields(logrus.Fields{"lobby": lobbyID, "won": didWin}).Info("round over")
		g.recordRound(lobbyID, wg)
	}
	return okEmpty()
}

// RestartGame starts a new round on the existing game; the turn queue carries over.
func (g *GameGateway) RestartGame(c *hub.Connection, lobbyID string) Result {
	if !c.Authenticated() {
		return fail(MsgAuthUnavailable)
	}
	if !g.admittedTo(c, lobbyID) {
		return fail(MsgLobbyNotFound)
	}
	unlock := g.locks.Lock(lobbyID)
	defer unlock()

	wg, found := g.games.TryGet(lobbyID)
	if !found {
		return fail(MsgLobbyNotFound)
	}
	length := wg.StartRound()
	g.gameGroups.Broadcast(lobbyID, EventGameStarted, length)
	return okEmpty()
}

// GetUsersInGame returns the lobby roster of a started game.
func (g *GameGateway) GetUsersInGame(c *hub.Connection, lobbyID string) ValueResult[[]lobby.ConnectedUser] {
	if !c.Authenticated() {
		return failValue[[]lobby.ConnectedUser](MsgAuthUnavailable)
	}
	if !g.admittedTo(c, lobbyID) {
		return failValue[[]lobby.ConnectedUser](MsgLobbyNotFound)
	}
	if !g.games.LobbyExists(lobbyID) {
		return failValue[[]lobby.ConnectedUser](MsgLobbyNotFound)
	}
	return okValue(g.lobbies.UsersInLobby(lobbyID))
}

// GetFrontPlayer returns the username whose turn it is.
func (g *GameGateway) GetFrontPlayer(c *hub.Connection, lobbyID string) ValueResult[string] {
	if !c.Authenticated() {
		return failValue[string](MsgAuthUnavailable)
	}
	if !g.admittedTo(c, lobbyID) {
		return failValue[string](MsgLobbyNotFound)
	}
	wg, found := g.games.TryGet(lobbyID)
	if !found {
		return failValue[string](MsgLobbyNotFound)
	}
	front, ok := wg.FrontPlayer()
	if !ok {
		return failValue[string](MsgEmptyQueue)
	}
	return okValue(front)
}

// InitQueueForGame seeds the turn queue from the roster; later calls change nothing.
func (g *GameGateway) InitQueueForGame(c *hub.Connection, lobbyID string) Result {
	if !c.Authenticated() {
		return fail(MsgAuthUnavailable)
	}
	if !g.admittedTo(c, lobbyID) {
		return fail(MsgLobbyNotFound)
	}
	unlock := g.locks.Lock(lobbyID)
	defer unlock()

	wg, found := g.games.TryGet(lobbyID)
	if !found {
		return fail(MsgLobbyNotFound)
	}
	wg.SeedQueue(g.rosterNames(lobbyID))
	return okEmpty()
}

// LeaveGame takes the caller out of the turn queue and the game group. A leaving host closes the
// lobby.
func (g *GameGateway) LeaveGame(c *hub.Connection, lobbyID string) Result {
	if !c.Authenticated() {
		return fail(MsgAuthUnavailable)
	}
	if !g.admittedTo(c, lobbyID) {
		return fail(MsgLobbyNotFound)
	}
	unlock := g.locks.Lock(lobbyID)
	defer unlock()

	if !g.lobbies.LobbyExists(lobbyID) {
		return fail(MsgLobbyNotFound)
	}
	if g.isHostUser(c.Username, lobbyID) {
		g.closeLobbyLocked(lobbyID)
	} else {
		if wg, found := g.games.TryGet(lobbyID); found {
			wg.RemovePlayer(c.Username)
		}
		g.gameGroups.Broadcast(lobbyID, EventUserLeftLobby, c.Username)
		g.gameGroups.Remove(lobbyID, c.ID)
	}
	g.forget(c.ID)
	return okEmpty()
}

// GetGuessedLetters returns the letters guessed this round, in order.
func (g *GameGateway) GetGuessedLetters(c *hub.Connection, lobbyID string) ValueResult[[]string] {
	if !c.Authenticated() {
		return failValue[[]string](MsgAuthUnavailable)
	}
	if !g.admittedTo(c, lobbyID) {
		return failValue[[]string](MsgLobbyNotFound)
	}
	wg, found := g.games.TryGet(lobbyID)
	if !found {
		return failValue[[]string](MsgLobbyNotFound)
	}
	letters := wg.GuessedLetters()
	out := make([]string, len(letters))
	for i, r := range letters {
		out[i] = string(r)
	}
	return okValue(out)
}

// OnDisconnect closes the lobby when the host drops; anyone else just leaves the game group and
// keeps their place in the queue for a reconnect.
func (g *GameGateway) OnDisconnect(c *hub.Connection) {
	lobbyID, ok := g.forget(c.ID)
	if !ok {
		return
	}
	unlock := g.locks.Lock(lobbyID)
	defer unlock()

	// a closed lobby already evicted c; its id may have been reused since
	if !g.lobbies.LobbyExists(lobbyID) || !g.gameGroups.Contains(lobbyID, c.ID) {
		return
	}
	if g.isHostUser(c.Username, lobbyID) {
		g.closeLobbyLocked(lobbyID)
		return
	}
	g.gameGroups.Broadcast(lobbyID, EventUserLeftLobby, c.Username)
	g.gameGroups.Remove(lobbyID, c.ID)
}

// forget drops the connection's lobby mapping and returns what it was.
func (g *GameGateway) forget(connID string) (string, bool) {
	g.connMu.Lock()
	defer g.connMu.Unlock()
	lobbyID, ok := g.connLobby[connID]
	delete(g.connLobby, connID)
	return lobbyID, ok
}

// admittedTo reports whether OnConnect put c in lobbyID's game group and it is still there. A
// closed lobby drops its group, so a reused id never admits an old connection.
func (g *GameGateway) admittedTo(c *hub.Connection, lobbyID string) bool {
	g.connMu.Lock()
	admitted, ok := g.connLobby[c.ID]
	g.connMu.Unlock()
	return ok && admitted == lobbyID && g.gameGroups.Contains(lobbyID, c.ID)
}

// isHostUser matches by username: game connections never reuse the lobby connection id.
func (g *GameGateway) isHostUser(username, lobbyID string) bool {
	host, ok := g.lobbies.Host(lobbyID)
	return ok && host.Username == username
}

func (g *GameGateway) rosterNames(lobbyID string) []string {
	members := g.lobbies.UsersInLobby(lobbyID)
	names := make([]string, 0, len(members))
	for _, m := range members {
		names = append(names, m.Username)
	}
	return names
}

// recordRound publishes the finished round in the background; failures are only logged.
func (g *GameGateway) recordRound(lobbyID string, wg *game.WordGame) {
	if g.recorder == nil {
		return
	}
	letters := wg.GuessedLetters()
	guessed := make([]string, len(letters))
	for i, r := range letters {
		guessed[i] = string(r)
	}
	record := cache.RoundRecord{
		LobbyID:    lobbyID,
		SecretWord: wg.SecretWord(),
		DidWin:     wg.DidWin(),
		Guessed:    guessed,
		Incorrect:  wg.IncorrectGuesses(),
		Players:    wg.Queue(),
		Timestamp:  time.Now().UnixMilli(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := g.recorder.PublishRound(ctx, record); err != nil {
			g.logger.WithField("lobby", lobbyID).Warnf("failed to record round: %v", err)
		}
	}()
}
