package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jason-s-yu/wordlobby/internal/game"
)

// querier is the slice of pgxpool.Pool the catalog needs.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// schema is applied by EnsureSchema; it is safe to run repeatedly.
const schema = `
CREATE TABLE IF NOT EXISTS games (
	id          INTEGER PRIMARY KEY,
	name        TEXT    NOT NULL,
	max_players INTEGER NOT NULL CHECK (max_players > 0)
)`

// GameCatalog answers max-player lookups from the games table.
type GameCatalog struct {
	db querier
}

// NewGameCatalog wraps a pool (or any compatible querier).
func NewGameCatalog(db querier) *GameCatalog {
	return &GameCatalog{db: db}
}

// EnsureSchema creates the games table if it does not exist.
func (c *GameCatalog) EnsureSchema(ctx context.Context) error {
	if _, err := c.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to create games table: %w", err)
	}
	return nil
}

// RegisterGames upserts every entry of catalog in one transaction.
func (c *GameCatalog) RegisterGames(ctx context.Context, names map[int]string, catalog game.Catalog) error {
	q := `
	INSERT INTO games (id, name, max_players)
	VALUES ($1, $2, $3)
	ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, max_players = EXCLUDED.max_players
	`
	err := pgx.BeginTxFunc(ctx, c.db, pgx.TxOptions{}, func(tx pgx.Tx) error {
		for id, maxPlayers := range catalog {
			name := names[id]
			if name == "" {
				name = fmt.Sprintf("game-%d", id)
			}
			if _, err := tx.Exec(ctx, q, id, name, maxPlayers); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to register games: %w", err)
	}
	return nil
}

// MaxPlayers returns the capacity of gameID. Unknown ids yield game.ErrUnknownGame.
func (c *GameCatalog) MaxPlayers(ctx context.Context, gameID int) (int, error) {
	var maxPlayers int
	err := c.db.QueryRow(ctx, `SELECT max_players FROM games WHERE id = $1`, gameID).Scan(&maxPlayers)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, fmt.Errorf("%w: %d", game.ErrUnknownGame, gameID)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to look up game %d: %w", gameID, err)
	}
	return maxPlayers, nil
}
