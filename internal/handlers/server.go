// internal/handlers/server.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/wordlobby/internal/game"
	"github.com/jason-s-yu/wordlobby/internal/hub"
	"github.com/jason-s-yu/wordlobby/internal/lobby"
	"github.com/jason-s-yu/wordlobby/internal/middleware"
	"github.com/sirupsen/logrus"
)

// Options configures a Server. Zero values fall back to the package defaults.
type Options struct {
	Catalog             lobby.GameCatalog
	IDs                 lobby.IDGenerator
	MaxIDAttempts       int
	MaxIncorrectGuesses int
	Words               []string
	// Picker overrides the random secret-word choice.
	Picker           func([]string) string
	Recorder         RoundRecorder
	ConnectionBuffer int
}

// Server bundles the lobby and game channels over one shared coordinator and game registry.
type Server struct {
	logger *logrus.Logger
	buffer int

	Lobbies *lobby.Coordinator
	Lobby   *LobbyGateway
	Game    *GameGateway
}

// NewServer wires both channels together.
func NewServer(logger *logrus.Logger, opts Options) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.Catalog == nil {
		opts.Catalog = game.DefaultCatalog
	}
	if opts.IDs == nil {
		opts.IDs = lobby.NumericIDs{}
	}
	if opts.ConnectionBuffer <= 0 {
		opts.ConnectionBuffer = hub.DefaultBuffer
	}

	coordinator := lobby.NewCoordinator(opts.IDs, opts.Catalog,
		lobby.WithMaxIDAttempts(opts.MaxIDAttempts),
		lobby.WithLogger(logger),
	)
	shared := newSessions(logger, coordinator)

	var gameOpts []game.WordGameOption
	if len(opts.Words) > 0 {
		gameOpts = append(gameOpts, game.WithWords(opts.Words))
	}
	if opts.Picker != nil {
		gameOpts = append(gameOpts, game.WithPicker(opts.Picker))
	}
	if opts.MaxIncorrectGuesses > 0 {
		gameOpts = append(gameOpts, game.WithMaxIncorrectGuesses(opts.MaxIncorrectGuesses))
	}
	newGame := func() *game.WordGame { return game.NewWordGame(gameOpts...) }

	return &Server{
		logger:  logger,
		buffer:  opts.ConnectionBuffer,
		Lobbies: coordinator,
		Lobby:   &LobbyGateway{sessions: shared},
		Game:    newGameGateway(shared, newGame, opts.Recorder),
	}
}

// Routes returns the HTTP handler serving both websocket endpoints and a health check.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	logged := middleware.LogMiddleware(s.logger)

	mux.Handle("/lobby/ws", logged(LobbyWSHandler(s.logger, s)))
	mux.Handle("/game/ws", logged(GameWSHandler(s.logger, s)))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}
