package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/wordlobby/internal/cache"
	"github.com/jason-s-yu/wordlobby/internal/config"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveRoundsEmptyBatchSkipsDatabase(t *testing.T) {
	s := NewRoundStore(fakeQuerier{})
	assert.NoError(t, s.SaveRounds(context.Background(), nil))
}

func TestSaveRoundsSurfacesTxError(t *testing.T) {
	s := NewRoundStore(fakeQuerier{})
	err := s.SaveRounds(context.Background(), []cache.RoundRecord{{LobbyID: "123456"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to save 1 rounds")
}

// TestRoundsAgainstPostgres needs a reachable database; it is skipped when PG_HOST is unset.
func TestRoundsAgainstPostgres(t *testing.T) {
	if os.Getenv("PG_HOST") == "" {
		t.Skip("PG_HOST not set")
	}
	cfg, err := config.Load()
	require.NoError(t, err)

	ctx := context.Background()
	pool, err := Connect(ctx, cfg.Postgres.ConnString(), logrus.New())
	require.NoError(t, err)
	defer pool.Close()

	s := NewRoundStore(pool)
	require.NoError(t, s.EnsureSchema(ctx))

	lobbyID := uuid.NewString()
	defer pool.Exec(context.Background(), `DELETE FROM rounds WHERE lobby_id = $1`, lobbyID)

	require.NoError(t, s.SaveRounds(ctx, []cache.RoundRecord{
		{LobbyID: lobbyID, SecretWord: "test", DidWin: true, Guessed: []string{"t", "e", "s"}, Players: []string{"alice"}, Timestamp: time.Now().UnixMilli()},
		{LobbyID: lobbyID, SecretWord: "word", Incorrect: 5, Timestamp: time.Now().UnixMilli()},
	}))

	var n int
	require.NoError(t, pool.QueryRow(ctx, `SELECT count(*) FROM rounds WHERE lobby_id = $1`, lobbyID).Scan(&n))
	assert.Equal(t, 2, n)
}
