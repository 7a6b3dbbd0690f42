// internal/database/rounds.go
package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/wordlobby/internal/cache"
)

const roundsSchema = `
CREATE TABLE IF NOT EXISTS rounds (
	id          BIGSERIAL   PRIMARY KEY,
	lobby_id    TEXT        NOT NULL,
	secret_word TEXT        NOT NULL,
	did_win     BOOLEAN     NOT NULL,
	guessed     TEXT[]      NOT NULL,
	incorrect   INTEGER     NOT NULL,
	players     TEXT[]      NOT NULL,
	finished_at TIMESTAMPTZ NOT NULL
)`

var roundColumns = []string{"lobby_id", "secret_word", "did_win", "guessed", "incorrect", "players", "finished_at"}

// RoundStore persists finished rounds drained from the history queue.
type RoundStore struct {
	db querier
}

// NewRoundStore wraps a pool (or any compatible querier).
func NewRoundStore(db querier) *RoundStore {
	return &RoundStore{db: db}
}

// EnsureSchema creates the rounds table if it does not exist.
func (s *RoundStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, roundsSchema); err != nil {
		return fmt.Errorf("failed to create rounds table: %w", err)
	}
	return nil
}

// SaveRounds copies records into the rounds table in a single transaction.
func (s *RoundStore) SaveRounds(ctx context.Context, records []cache.RoundRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]any, len(records))
	for i, rec := range records {
		rows[i] = []any{
			rec.LobbyID,
			rec.SecretWord,
			rec.DidWin,
			nonNil(rec.Guessed),
			rec.Incorrect,
			nonNil(rec.Players),
			time.UnixMilli(rec.Timestamp).UTC(),
		}
	}

	err := pgx.BeginTxFunc(ctx, s.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		_, err := tx.CopyFrom(ctx, pgx.Identifier{"rounds"}, roundColumns, pgx.CopyFromRows(rows))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to save %d rounds: %w", len(records), err)
	}
	return nil
}

// nonNil keeps NOT NULL array columns happy.
func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
