package game

import (
	"errors"
	"sync"
)

// ErrDuplicateEntry is returned by Registry.Add when the lobby already has a game.
var ErrDuplicateEntry = errors.New("game logic already registered for lobby")

// Logic is what a game module must offer to be hosted per lobby.
type Logic interface {
	// StartRound begins a fresh round and returns the public size of its puzzle.
	StartRound() int
	IsGameOver() bool
}

// Registry maps a lobby id to the one live game instance for that lobby.
type Registry[T Logic] struct {
	mu      sync.RWMutex
	entries map[string]T
}

// NewRegistry returns an empty Registry.
func NewRegistry[T Logic]() *Registry[T] {
	return &Registry[T]{
		entries: make(map[string]T),
	}
}

// LobbyExists reports whether a game is registered for lobbyID.
func (r *Registry[T]) LobbyExists(lobbyID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.entries[lobbyID]
	return ok
}

// Add registers logic for lobbyID. An existing entry is never overwritten.
func (r *Registry[T]) Add(lobbyID string, logic T) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.entries[lobbyID]; exists {
		return ErrDuplicateEntry
	}
	r.entries[lobbyID] = logic
	return nil
}

// TryGet returns the game registered for lobbyID.
func (r *Registry[T]) TryGet(lobbyID string) (T, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	logic, ok := r.entries[lobbyID]
	return logic, ok
}

// Remove deletes the entry for lobbyID and reports whether there was one.
func (r *Registry[T]) Remove(lobbyID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[lobbyID]; !ok {
		return false
	}
	delete(r.entries, lobbyID)
	return true
}

// Len returns the number of registered games.
func (r *Registry[T]) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}
