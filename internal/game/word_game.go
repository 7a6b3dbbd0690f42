// internal/game/word_game.go
package game

import (
	"errors"
	"strings"
	"sync"
	"unicode"
)

// DefaultMaxIncorrectGuesses is the number of wrong letters that loses a round.
const DefaultMaxIncorrectGuesses = 5

var (
	ErrNotYourTurn = errors.New("not the user's turn")
	ErrRoundOver   = errors.New("round is over")
	ErrNoRound     = errors.New("no round in progress")
)

// GuessResult is the outcome of one evaluated letter.
type GuessResult struct {
	Letter    rune
	Correct   bool
	Positions []int
}

// WordGame is the turn-queued word-guessing game for one lobby. It does no I/O; the gateway
// broadcasts whatever it returns.
type WordGame struct {
	mu sync.Mutex

	words        []string
	pick         func([]string) string
	maxIncorrect int

	secret  []rune // lower-cased
	guessed map[rune]struct{}
	order   []rune // guessed letters in the order they were accepted

	queue  []string
	seeded bool
}

// WordGameOption configures a WordGame.
type WordGameOption func(*WordGame)

// WithWords replaces the secret word pool. Empty pools are ignored.
func WithWords(words []string) WordGameOption {
	return func(g *WordGame) {
		if len(words) > 0 {
			g.words = words
		}
	}
}

// WithPicker replaces the random word selection, mostly for tests.
func WithPicker(pick func([]string) string) WordGameOption {
	return func(g *WordGame) {
		if pick != nil {
			g.pick = pick
		}
	}
}

// WithMaxIncorrectGuesses sets the losing threshold.
func WithMaxIncorrectGuesses(n int) WordGameOption {
	return func(g *WordGame) {
		if n > 0 {
			g.maxIncorrect = n
		}
	}
}

// NewWordGame creates a game with no round started and an unseeded turn queue.
func NewWordGame(opts ...WordGameOption) *WordGame {
	g := &WordGame{
		words:        DefaultWords,
		pick:         pickWord,
		maxIncorrect: DefaultMaxIncorrectGuesses,
		guessed:      make(map[rune]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func pickWord(words []string) string {
	w, _ := PickRandom(words)
	return w
}

// StartRound selects a new secret word, clears the guessed letters and returns the word length.
// The turn queue is left untouched.
func (g *WordGame) StartRound() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	word := strings.ToLower(strings.TrimSpace(g.pick(g.words)))
	if word == "" {
		word = pickWord(DefaultWords)
	}
	g.secret = []rune(word)
	g.guessed = make(map[rune]struct{})
	g.order = nil
	return len(g.secret)
}

// Guess evaluates letter against the secret word without any turn bookkeeping.
func (g *WordGame) Guess(letter rune) GuessResult {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.guessUnsafe(letter)
}

// TakeTurn checks that username is at the front of the queue, rotates the queue and evaluates
// letter, all under one lock so two racing guesses can never both be accepted.
func (g *WordGame) TakeTurn(username string, letter rune) (GuessResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.secret) == 0 {
		return GuessResult{}, ErrNoRound
	}
	if g.isGameOverUnsafe() {
		return GuessResult{}, ErrRoundOver
	}
	if len(g.queue) == 0 || g.queue[0] != username {
		return GuessResult{}, ErrNotYourTurn
	}
	g.queue = append(g.queue[1:], g.queue[0])
	return g.guessUnsafe(letter), nil
}

// guessUnsafe assumes the lock is held. Repeats and non-letters are reported as incorrect but
// never recorded, so they do not count towards a loss.
func (g *WordGame) guessUnsafe(letter rune) GuessResult {
	letter = unicode.ToLower(letter)
	res := GuessResult{Letter: letter, Positions: []int{}}
	if !unicode.IsLetter(letter) {
		return res
	}
	if _, seen := g.guessed[letter]; seen {
		return res
	}
	g.guessed[letter] = struct{}{}
	g.order = append(g.order, letter)

	for i, r := range g.secret {
		if r == letter {
			res.Positions = append(res.Positions, i)
		}
	}
	res.Correct = len(res.Positions) > 0
	return res
}

// IsGameOver reports whether the current round is won or lost.
func (g *WordGame) IsGameOver() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.isGameOverUnsafe()
}

func (g *WordGame) isGameOverUnsafe() bool {
	return g.didWinUnsafe() || g.incorrectUnsafe() >= g.maxIncorrect
}

// DidWin reports whether every letter of the secret word has been guessed.
func (g *WordGame) DidWin() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.didWinUnsafe()
}

func (g *WordGame) didWinUnsafe() bool {
	if len(g.secret) == 0 {
		return false
	}
	for _, r := range g.secret {
		if _, ok := g.guessed[r]; !ok {
			return false
		}
	}
	return true
}

// IncorrectGuesses counts guessed letters absent from the secret word.
func (g *WordGame) IncorrectGuesses() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.incorrectUnsafe()
}

func (g *WordGame) incorrectUnsafe() int {
	n := 0
	for r := range g.guessed {
		if !containsRune(g.secret, r) {
			n++
		}
	}
	return n
}

// MaxIncorrectGuesses returns the losing threshold.
func (g *WordGame) MaxIncorrectGuesses() int {
	return g.maxIncorrect
}

// SecretWord returns the current secret word.
func (g *WordGame) SecretWord() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return string(g.secret)
}

// GuessedLetters returns the accepted letters in guess order.
func (g *WordGame) GuessedLetters() []rune {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]rune, len(g.order))
	copy(out, g.order)
	return out
}

// SeedQueue fills the turn queue from usernames in order, skipping duplicates and blanks.
// Only the first call has any effect; it reports whether this call seeded the queue.
func (g *WordGame) SeedQueue(usernames []string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.seeded {
		return false
	}
	seen := make(map[string]struct{}, len(usernames))
	for _, name := range usernames {
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		g.queue = append(g.queue, name)
	}
	g.seeded = true
	return true
}

// FrontPlayer returns whose turn it is.
func (g *WordGame) FrontPlayer() (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.queue) == 0 {
		return "", false
	}
	return g.queue[0], true
}

// Queue returns a copy of the turn queue, front first.
func (g *WordGame) Queue() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.queue))
	copy(out, g.queue)
	return out
}

// RemovePlayer drops username from the turn queue and reports whether it was there.
func (g *WordGame) RemovePlayer(username string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for i, name := range g.queue {
		if name == username {
			g.queue = append(g.queue[:i], g.queue[i+1:]...)
			return true
		}
	}
	return false
}

func containsRune(rs []rune, r rune) bool {
	for _, x := range rs {
		if x == r {
			return true
		}
	}
	return false
}
