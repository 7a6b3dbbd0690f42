package handlers

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/jason-s-yu/wordlobby/internal/game"
	"github.com/jason-s-yu/wordlobby/internal/hub"
	"github.com/jason-s-yu/wordlobby/internal/lobby"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testLobbyID = "123456"

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestServer(t *testing.T, recorder RoundRecorder) *Server {
	t.Helper()
	return NewServer(quietLogger(), Options{
		Catalog:             game.Catalog{game.WordGameID: 10, 2: 2},
		IDs:                 lobby.IDGeneratorFunc(func() string { return testLobbyID }),
		MaxIDAttempts:       1,
		MaxIncorrectGuesses: 3,
		Picker:              func([]string) string { return "test" },
		Recorder:            recorder,
	})
}

func newConn(id, username string) *hub.Connection {
	return hub.NewConnectionWithID(id, username, 64, quietLogger())
}

func drain(c *hub.Connection) []hub.Message {
	var out []hub.Message
	for {
		select {
		case m, ok := <-c.OutChan:
			if !ok {
				return out
			}
			out = append(out, m)
		default:
			return out
		}
	}
}

func targets(msgs []hub.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Target
	}
	return out
}

func rawArgs(t *testing.T, args ...any) []json.RawMessage {
	t.Helper()
	out := make([]json.RawMessage, len(args))
	for i, a := range args {
		b, err := json.Marshal(a)
		require.NoError(t, err)
		out[i] = b
	}
	return out
}

// hostLobby creates the test lobby with alice as host and returns her connection.
func hostLobby(t *testing.T, s *Server) *hub.Connection {
	t.Helper()
	alice := newConn("lobby-alice", "alice")
	res, err := s.Lobby.CreateLobby(context.Background(), alice, game.WordGameID)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, testLobbyID, res.Text())
	return alice
}

func TestCreateLobbyRequiresAuthentication(t *testing.T) {
	s := newTestServer(t, nil)
	anon := newConn("anon", "")

	res, err := s.Lobby.CreateLobby(context.Background(), anon, game.WordGameID)
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, MsgAuthUnavailable, res.Text())
	assert.Zero(t, s.Lobbies.Len())
}

func TestCreateLobbySubscribesHost(t *testing.T) {
	s := newTestServer(t, nil)
	alice := hostLobby(t, s)

	assert.True(t, s.Lobby.lobbyGroups.Contains(testLobbyID, alice.ID))
	assert.True(t, s.Lobbies.IsHost(alice.ID, testLobbyID))
	assert.Equal(t, []lobby.ConnectedUser{userOf(alice)}, s.Lobbies.UsersInLobby(testLobbyID))

	again, err := s.Lobby.CreateLobby(context.Background(), alice, game.WordGameID)
	require.NoError(t, err)
	assert.False(t, again.Success)
	assert.Equal(t, MsgAlreadyInLobby, again.Text())
}

func TestCreateLobbyHostHearsRacingJoin(t *testing.T) {
	for i := 0; i < 50; i++ {
		s := newTestServer(t, nil)
		alice := newConn("lobby-alice", "alice")
		bob := newConn("lobby-bob", "bob")

		done := make(chan Result, 1)
		go func() {
			res, _ := s.Lobby.CreateLobby(context.Background(), alice, game.WordGameID)
			done <- res
		}()
		assert.Eventually(t, func() bool {
			return s.Lobby.JoinLobby(bob, testLobbyID).Success
		}, time.Second, time.Millisecond)
		require.True(t, (<-done).Success)

		assert.Equal(t, []string{EventUserJoinedLobby}, targets(drain(alice)))
	}
}

func TestCreateLobbyUnknownGameIsAnError(t *testing.T) {
	s := newTestServer(t, nil)
	_, err := s.Lobby.CreateLobby(context.Background(), newConn("a", "alice"), 99)
	assert.ErrorIs(t, err, game.ErrUnknownGame)
}

func TestCreateLobbyIDSpaceExhausted(t *testing.T) {
	s := newTestServer(t, nil)
	hostLobby(t, s)

	_, err := s.Lobby.CreateLobby(context.Background(), newConn("b", "bob"), game.WordGameID)
	assert.ErrorIs(t, err, lobby.ErrIDSpaceExhausted)
}

func TestJoinLobbyCatchUpAndBroadcast(t *testing.T) {
	s := newTestServer(t, nil)
	alice := hostLobby(t, s)
	bob := newConn("lobby-bob", "bob")
	carol := newConn("lobby-carol", "carol")

	res := s.Lobby.JoinLobby(bob, testLobbyID)
	require.True(t, res.Success)
	assert.Equal(t, testLobbyID, res.Text())

	// the host is not replayed, so bob only hears about himself
	bobMsgs := drain(bob)
	require.Len(t, bobMsgs, 1)
	assert.Equal(t, []any{userOf(bob)}, bobMsgs[0].Arguments)
	aliceMsgs := drain(alice)
	require.Len(t, aliceMsgs, 1)
	assert.Equal(t, EventUserJoinedLobby, aliceMsgs[0].Target)
	assert.Equal(t, []any{userOf(bob)}, aliceMsgs[0].Arguments)

	require.True(t, s.Lobby.JoinLobby(carol, testLobbyID).Success)
	carolMsgs := drain(carol)
	require.Len(t, carolMsgs, 2)
	assert.Equal(t, []any{userOf(bob)}, carolMsgs[0].Arguments)
	assert.Equal(t, []any{userOf(carol)}, carolMsgs[1].Arguments)
	assert.Len(t, drain(alice), 1)
	assert.Len(t, drain(bob), 1)

	assert.Equal(t, []lobby.ConnectedUser{userOf(alice), userOf(bob), userOf(carol)}, s.Lobbies.UsersInLobby(testLobbyID))
}

func TestJoinLobbyFailures(t *testing.T) {
	s := newTestServer(t, nil)

	res := s.Lobby.JoinLobby(newConn("b", "bob"), "000000")
	assert.Equal(t, MsgLobbyNotFound, res.Text())

	res = s.Lobby.JoinLobby(newConn("anon", ""), testLobbyID)
	assert.Equal(t, MsgAuthUnavailable, res.Text())

	alice := hostLobby(t, s)
	res = s.Lobby.JoinLobby(alice, testLobbyID)
	assert.False(t, res.Success)
	assert.Equal(t, MsgAlreadyInLobby, res.Text())
}

func TestJoinLobbyFull(t *testing.T) {
	s := newTestServer(t, nil)
	alice := newConn("a", "alice")
	_, err := s.Lobby.CreateLobby(context.Background(), alice, 2)
	require.NoError(t, err)

	require.True(t, s.Lobby.JoinLobby(newConn("b", "bob"), testLobbyID).Success)
	carol := newConn("c", "carol")
	res := s.Lobby.JoinLobby(carol, testLobbyID)
	assert.False(t, res.Success)
	assert.Equal(t, MsgLobbyFull, res.Text())
	assert.False(t, s.Lobby.lobbyGroups.Contains(testLobbyID, carol.ID))
	assert.Empty(t, drain(carol))
}

func TestLeaveLobbyNonHost(t *testing.T) {
	s := newTestServer(t, nil)
	alice := hostLobby(t, s)
	bob := newConn("lobby-bob", "bob")
	require.True(t, s.Lobby.JoinLobby(bob, testLobbyID).Success)
	drain(alice)
	drain(bob)

	res := s.Lobby.LeaveLobby(bob, testLobbyID)
	assert.True(t, res.Success)
	assert.Nil(t, res.Message)

	msgs := drain(alice)
	require.Len(t, msgs, 1)
	assert.Equal(t, EventUserLeftLobby, msgs[0].Target)
	assert.Equal(t, []any{userOf(bob)}, msgs[0].Arguments)
	assert.False(t, s.Lobby.lobbyGroups.Contains(testLobbyID, bob.ID))
	assert.Equal(t, []lobby.ConnectedUser{userOf(alice)}, s.Lobbies.UsersInLobby(testLobbyID))

	assert.Equal(t, MsgLobbyNotFound, s.Lobby.LeaveLobby(bob, "000000").Text())
}

func TestLeaveLobbyHostClosesLobby(t *testing.T) {
	s := newTestServer(t, nil)
	alice := hostLobby(t, s)
	bob := newConn("lobby-bob", "bob")
	require.True(t, s.Lobby.JoinLobby(bob, testLobbyID).Success)
	drain(alice)
	drain(bob)

	require.True(t, s.Lobby.LeaveLobby(alice, testLobbyID).Success)

	assert.Equal(t, []string{EventLobbyClosed}, targets(drain(bob)))
	assert.Equal(t, []string{EventLobbyClosed}, targets(drain(alice)))
	assert.False(t, s.Lobbies.LobbyExists(testLobbyID))
	assert.Empty(t, s.Lobby.lobbyGroups.Members(testLobbyID))
}

func TestLobbyStartGame(t *testing.T) {
	s := newTestServer(t, nil)
	alice := hostLobby(t, s)
	bob := newConn("lobby-bob", "bob")
	require.True(t, s.Lobby.JoinLobby(bob, testLobbyID).Success)
	drain(alice)
	drain(bob)

	res := s.Lobby.StartGame(bob, testLobbyID)
	assert.False(t, res.Success)
	assert.Equal(t, MsgNotHost, res.Text())

	res = s.Lobby.StartGame(alice, testLobbyID)
	require.True(t, res.Success)
	assert.Equal(t, testLobbyID, res.Text())
	assert.Equal(t, lobby.InGame, s.Lobbies.Status(testLobbyID))
	assert.Equal(t, []string{EventGameStarted}, targets(drain(alice)))
	assert.Equal(t, []string{EventGameStarted}, targets(drain(bob)))

	assert.Equal(t, MsgLobbyInGame, s.Lobby.StartGame(alice, testLobbyID).Text())
	assert.Equal(t, MsgLobbyInGame, s.Lobby.JoinLobby(newConn("c", "carol"), testLobbyID).Text())
	assert.Equal(t, MsgLobbyNotFound, s.Lobby.StartGame(alice, "000000").Text())
}

func TestLobbyDisconnect(t *testing.T) {
	t.Run("non-host leaves the roster", func(t *testing.T) {
		s := newTestServer(t, nil)
		alice := hostLobby(t, s)
		bob := newConn("lobby-bob", "bob")
		require.True(t, s.Lobby.JoinLobby(bob, testLobbyID).Success)
		drain(alice)

		s.Lobby.OnDisconnect(bob)
		assert.Equal(t, []string{EventUserLeftLobby}, targets(drain(alice)))
		assert.Len(t, s.Lobbies.UsersInLobby(testLobbyID), 1)
	})

	t.Run("host closes the lobby", func(t *testing.T) {
		s := newTestServer(t, nil)
		alice := hostLobby(t, s)
		bob := newConn("lobby-bob", "bob")
		require.True(t, s.Lobby.JoinLobby(bob, testLobbyID).Success)
		drain(bob)

		s.Lobby.OnDisconnect(alice)
		assert.Equal(t, []string{EventLobbyClosed}, targets(drain(bob)))
		assert.False(t, s.Lobbies.LobbyExists(testLobbyID))
	})

	t.Run("in-game lobby keeps its roster", func(t *testing.T) {
		s := newTestServer(t, nil)
		alice := hostLobby(t, s)
		bob := newConn("lobby-bob", "bob")
		require.True(t, s.Lobby.JoinLobby(bob, testLobbyID).Success)
		require.True(t, s.Lobby.StartGame(alice, testLobbyID).Success)

		s.Lobby.OnDisconnect(alice)
		s.Lobby.OnDisconnect(bob)
		assert.True(t, s.Lobbies.LobbyExists(testLobbyID))
		assert.Len(t, s.Lobbies.UsersInLobby(testLobbyID), 2)
		assert.Empty(t, s.Lobby.lobbyGroups.Members(testLobbyID))
	})

	t.Run("stranger is a no-op", func(t *testing.T) {
		s := newTestServer(t, nil)
		hostLobby(t, s)
		s.Lobby.OnDisconnect(newConn("x", "mallory"))
		assert.True(t, s.Lobbies.LobbyExists(testLobbyID))
	})
}

func TestLobbyInvokeDispatch(t *testing.T) {
	s := newTestServer(t, nil)
	ctx := context.Background()
	alice := newConn("lobby-alice", "alice")

	out, err := s.Lobby.Invoke(ctx, alice, "CreateLobby", rawArgs(t, game.WordGameID))
	require.NoError(t, err)
	res, ok := out.(Result)
	require.True(t, ok)
	assert.Equal(t, testLobbyID, res.Text())

	_, err = s.Lobby.Invoke(ctx, alice, "Nope", nil)
	assert.ErrorIs(t, err, ErrUnknownTarget)

	_, err = s.Lobby.Invoke(ctx, alice, "JoinLobby", nil)
	assert.Error(t, err)

	_, err = s.Lobby.Invoke(ctx, alice, "JoinLobby", rawArgs(t, 42))
	assert.Error(t, err)

	out, err = s.Lobby.Invoke(ctx, alice, "StartGame", rawArgs(t, testLobbyID))
	require.NoError(t, err)
	assert.True(t, out.(Result).Success)
}
