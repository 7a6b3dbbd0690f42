package lobby

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticCatalog maps game id -> max players; unknown ids fail.
type staticCatalog map[int]int

func (s staticCatalog) MaxPlayers(_ context.Context, gameID int) (int, error) {
	n, ok := s[gameID]
	if !ok {
		return 0, fmt.Errorf("unknown game %d", gameID)
	}
	return n, nil
}

// sequenceIDs hands out ids from a fixed list, repeating the last one forever.
func sequenceIDs(ids ...string) IDGenerator {
	var mu sync.Mutex
	i := 0
	return IDGeneratorFunc(func() string {
		mu.Lock()
		defer mu.Unlock()
		id := ids[i]
		if i < len(ids)-1 {
			i++
		}
		return id
	})
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.PanicLevel)
	return l
}

func newTestCoordinator(ids IDGenerator) *Coordinator {
	return NewCoordinator(ids, staticCatalog{1: 10, 2: 2}, WithLogger(quietLogger()), WithMaxIDAttempts(4))
}

func user(name string) ConnectedUser {
	return ConnectedUser{Username: name, ConnectionID: "conn-" + name}
}

func TestCreateLobby(t *testing.T) {
	c := newTestCoordinator(sequenceIDs("123456"))
	host := user("alice")

	id, err := c.CreateLobby(context.Background(), host, 1)
	require.NoError(t, err)
	assert.Equal(t, "123456", id)
	assert.True(t, c.LobbyExists(id))
	assert.True(t, c.IsHost(host.ConnectionID, id))
	assert.False(t, c.IsHost("someone-else", id))
	assert.Equal(t, InLobby, c.Status(id))
	assert.Equal(t, []ConnectedUser{host}, c.UsersInLobby(id))

	got, ok := c.Host(id)
	require.True(t, ok)
	assert.Equal(t, host, got)
}

func TestCreateLobbyRetriesCollisionsWithinBound(t *testing.T) {
	c := newTestCoordinator(sequenceIDs("111111", "111111", "222222"))
	first, err := c.CreateLobby(context.Background(), user("a"), 1)
	require.NoError(t, err)
	second, err := c.CreateLobby(context.Background(), user("b"), 1)
	require.NoError(t, err)
	assert.Equal(t, "111111", first)
	assert.Equal(t, "222222", second)

	// generator now only yields a taken id
	_, err = c.CreateLobby(context.Background(), user("c"), 1)
	assert.ErrorIs(t, err, ErrIDSpaceExhausted)
	assert.Equal(t, 2, c.Len())
}

func TestCreateLobbyPropagatesCatalogError(t *testing.T) {
	c := newTestCoordinator(sequenceIDs("123456"))
	_, err := c.CreateLobby(context.Background(), user("a"), 99)
	require.Error(t, err)
	assert.EqualError(t, err, "unknown game 99")
	assert.Equal(t, 0, c.Len())
}

func TestAddToLobbyReturnsPreInsertionSnapshot(t *testing.T) {
	c := newTestCoordinator(sequenceIDs("123456"))
	host, bob, carol := user("alice"), user("bob"), user("carol")
	id, err := c.CreateLobby(context.Background(), host, 1)
	require.NoError(t, err)

	before, err := c.AddToLobby(bob, id)
	require.NoError(t, err)
	assert.Equal(t, []ConnectedUser{host}, before)

	before, err = c.AddToLobby(carol, id)
	require.NoError(t, err)
	assert.Equal(t, []ConnectedUser{host, bob}, before)
	assert.Equal(t, []ConnectedUser{host, bob, carol}, c.UsersInLobby(id))

	_, err = c.AddToLobby(bob, id)
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, err = c.AddToLobby(user("dave"), "000000")
	assert.ErrorIs(t, err, ErrLobbyNotFound)
}

func TestCapacityInvariant(t *testing.T) {
	c := newTestCoordinator(sequenceIDs("123456"))
	id, err := c.CreateLobby(context.Background(), user("host"), 2)
	require.NoError(t, err)

	_, err = c.AddToLobby(user("second"), id)
	require.NoError(t, err)

	_, err = c.AddToLobby(user("third"), id)
	assert.ErrorIs(t, err, ErrLobbyFull)
	assert.Len(t, c.UsersInLobby(id), 2)
}

func TestConcurrentJoinsNeverExceedCapacity(t *testing.T) {
	c := newTestCoordinator(sequenceIDs("123456"))
	id, err := c.CreateLobby(context.Background(), user("host"), 1)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var mu sync.Mutex
	full := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := c.AddToLobby(user(fmt.Sprintf("p%d", i)), id)
			if errors.Is(err, ErrLobbyFull) {
				mu.Lock()
				full++
				mu.Unlock()
			}
		}(i)
	}
	wg.Wait()

	assert.Len(t, c.UsersInLobby(id), 10)
	assert.Equal(t, 41, full)
}

func TestIdempotentRemoval(t *testing.T) {
	c := newTestCoordinator(sequenceIDs("123456"))
	host, bob := user("alice"), user("bob")
	id, err := c.CreateLobby(context.Background(), host, 1)
	require.NoError(t, err)

	c.RemoveFromLobby(bob, id)
	c.RemoveFromLobby(bob, "missing")
	c.RemoveLobby("missing")
	assert.Equal(t, []ConnectedUser{host}, c.UsersInLobby(id))

	c.RemoveLobby(id)
	c.RemoveLobby(id)
	assert.False(t, c.LobbyExists(id))
	assert.Equal(t, NoLobby, c.Status(id))
	assert.Empty(t, c.UsersInLobby(id))
	assert.NotNil(t, c.UsersInLobby(id))
}

func TestReverseLookups(t *testing.T) {
	c := newTestCoordinator(sequenceIDs("111111", "222222"))
	a, b := user("alice"), user("bob")
	idA, err := c.CreateLobby(context.Background(), a, 1)
	require.NoError(t, err)
	idB, err := c.CreateLobby(context.Background(), b, 1)
	require.NoError(t, err)

	got, ok := c.LobbyIDForUser(b)
	require.True(t, ok)
	assert.Equal(t, idB, got)

	// same connection id, different display name: still the same entry
	got, ok = c.LobbyIDForUser(ConnectedUser{Username: "renamed", ConnectionID: a.ConnectionID})
	require.True(t, ok)
	assert.Equal(t, idA, got)

	got, ok = c.LobbyIDForUsername("alice")
	require.True(t, ok)
	assert.Equal(t, idA, got)

	_, ok = c.LobbyIDForUsername("")
	assert.False(t, ok)
	_, ok = c.LobbyIDForUser(user("nobody"))
	assert.False(t, ok)
}

func TestLobbyIDForUsernamePrefersLatestJoin(t *testing.T) {
	for _, ids := range [][]string{{"111111", "222222"}, {"222222", "111111"}} {
		c := newTestCoordinator(sequenceIDs(ids...))
		older, err := c.CreateLobby(context.Background(), user("bob"), 1)
		require.NoError(t, err)
		_, err = c.AddToLobby(ConnectedUser{Username: "alice", ConnectionID: "alice-1"}, older)
		require.NoError(t, err)
		c.StartGame(older)

		// alice's first lobby connection dropped without leaving, then she joined elsewhere
		newer, err := c.CreateLobby(context.Background(), user("carol"), 1)
		require.NoError(t, err)
		_, err = c.AddToLobby(ConnectedUser{Username: "alice", ConnectionID: "alice-2"}, newer)
		require.NoError(t, err)

		got, ok := c.LobbyIDForUsername("alice")
		require.True(t, ok)
		assert.Equal(t, newer, got, "ids %v", ids)

		c.RemoveFromLobby(ConnectedUser{Username: "alice", ConnectionID: "alice-2"}, newer)
		got, ok = c.LobbyIDForUsername("alice")
		require.True(t, ok)
		assert.Equal(t, older, got, "ids %v", ids)
	}
}

func TestCreateLobbyWithPublishesOnce(t *testing.T) {
	c := newTestCoordinator(sequenceIDs("123456"))
	var published []string
	id, err := c.CreateLobbyWith(context.Background(), user("alice"), 1, func(lobbyID string) {
		published = append(published, lobbyID)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{id}, published)

	_, err = c.CreateLobbyWith(context.Background(), user("bob"), 1, func(lobbyID string) {
		published = append(published, lobbyID)
	})
	assert.ErrorIs(t, err, ErrIDSpaceExhausted)
	assert.Equal(t, []string{id}, published)
}

func TestStartGame(t *testing.T) {
	c := newTestCoordinator(sequenceIDs("123456"))
	id, err := c.CreateLobby(context.Background(), user("alice"), 1)
	require.NoError(t, err)

	c.StartGame("missing")
	c.StartGame(id)
	assert.Equal(t, InGame, c.Status(id))
	assert.Equal(t, "InGame", c.Status(id).String())
}

func TestNumericIDs(t *testing.T) {
	ids := NumericIDs{Digits: 6}
	for i := 0; i < 100; i++ {
		id := ids.NewID()
		require.Len(t, id, 6)
		for _, r := range id {
			assert.True(t, r >= '0' && r <= '9', "unexpected rune %q in %s", r, id)
		}
	}
	assert.Len(t, NumericIDs{}.NewID(), 6)
}
