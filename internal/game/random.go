package game

import (
	"errors"
	"math/rand/v2"
)

// ErrEmptyChoice is returned when picking from an empty list.
var ErrEmptyChoice = errors.New("cannot pick from an empty list")

// PickRandom returns a uniformly random element of items.
func PickRandom[T any](items []T) (T, error) {
	var zero T
	if len(items) == 0 {
		return zero, ErrEmptyChoice
	}
	return items[rand.IntN(len(items))], nil
}
