package game

import (
	"context"
	"errors"
	"fmt"
)

// WordGameID is the catalog id of the turn-queued word-guessing game.
const WordGameID = 1

// ErrUnknownGame is returned by catalogs for ids they do not know.
var ErrUnknownGame = errors.New("unknown game")

// Catalog is an in-memory game id -> max players table, used when no catalog database is
// configured.
type Catalog map[int]int

// DefaultCatalog lists the games this server hosts.
var DefaultCatalog = Catalog{WordGameID: 10}

// MaxPlayers looks up the capacity for gameID.
func (c Catalog) MaxPlayers(_ context.Context, gameID int) (int, error) {
	n, ok := c[gameID]
	if !ok {
		return 0, fmt.Errorf("%w: %d", ErrUnknownGame, gameID)
	}
	return n, nil
}
