// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/wordlobby/internal/auth"
	"github.com/jason-s-yu/wordlobby/internal/hub"
	"github.com/jason-s-yu/wordlobby/internal/middleware"
	"github.com/sirupsen/logrus"
)

const (
	LobbySubprotocol = "lobby"
	GameSubprotocol  = "game"

	pingInterval = 30 * time.Second
	writeTimeout = 5 * time.Second
)

// LobbyWSHandler upgrades /lobby/ws requests and serves them through the lobby channel.
func LobbyWSHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return serveSocket(logger, s.Lobby, LobbySubprotocol, s.buffer)
}

// GameWSHandler upgrades /game/ws requests and serves them through the game channel.
func GameWSHandler(logger *logrus.Logger, s *Server) http.HandlerFunc {
	return serveSocket(logger, s.Game, GameSubprotocol, s.buffer)
}

// serveSocket runs one websocket session against gw: admission, the read and write pumps, and
// the disconnect hook once the client goes away.
func serveSocket(logger *logrus.Logger, gw gateway, subprotocol string, buffer int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{subprotocol},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != subprotocol {
			c.Close(BadSubprotocolError, "client must speak the "+subprotocol+" subprotocol")
			return
		}

		username, _ := auth.UsernameFromRequest(r)
		conn := hub.NewConnection(username, buffer, logger)
		ctx, cancel := context.WithCancel(r.Context())
		conn.Cancel = cancel
		defer cancel()

		if err := gw.OnConnect(ctx, conn); err != nil {
			var ce *closeError
			if errors.As(err, &ce) {
				logger.WithFields(logrus.Fields{"conn": conn.ID, "code": int(ce.code)}).Infof("connection rejected: %s", ce.reason)
				c.Close(ce.code, ce.reason)
				return
			}
			logger.Errorf("OnConnect failed for %s: %v", conn.ID, err)
			c.Close(websocket.StatusInternalError, "connection setup failed")
			return
		}
		middleware.LogWebSocketConnect(logger, r, conn.ID, username)

		go writePump(ctx, c, conn, logger)
		readErr := readPump(ctx, c, gw, conn, logger)

		gw.OnDisconnect(conn)
		conn.Close()
		middleware.LogWebSocketDisconnect(logger, r, conn.ID, readErr)
		c.Close(websocket.StatusNormalClosure, "")
	}
}

// readPump decodes frames until the socket fails and dispatches them in arrival order. It returns
// nil on a normal close.
func readPump(ctx context.Context, c *websocket.Conn, gw gateway, conn *hub.Connection, logger *logrus.Logger) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			logger.Warnf("conn %s: ignoring non-text message type %d", conn.ID, typ)
			continue
		}

		var inv invocation
		if err := json.Unmarshal(data, &inv); err != nil {
			logger.Warnf("conn %s: invalid json: %v", conn.ID, err)
			conn.Write(hub.Message{Type: hub.TypeError, Error: "Invalid JSON format"})
			continue
		}

		switch inv.Type {
		case hub.TypePing:
			conn.Write(hub.Message{Type: hub.TypePong})
		case hub.TypeInvoke:
			result, err := gw.Invoke(ctx, conn, inv.Target, inv.Arguments)
			if err != nil {
				logger.WithFields(logrus.Fields{"conn": conn.ID, "target": inv.Target}).Warnf("invocation failed: %v", err)
				conn.Write(hub.CompletionError(inv.ID, err.Error()))
				continue
			}
			conn.Write(hub.Completion(inv.ID, result))
		default:
			logger.Warnf("conn %s: unknown frame type %q", conn.ID, inv.Type)
			conn.Write(hub.Message{Type: hub.TypeError, Error: "Unknown frame type: " + inv.Type})
		}
	}
}

// writePump drains OutChan onto the socket and keeps the connection alive with pings.
func writePump(ctx context.Context, c *websocket.Conn, conn *hub.Connection, logger *logrus.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-conn.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				logger.Warnf("conn %s: failed to marshal outgoing msg: %v", conn.ID, err)
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				logger.Warnf("conn %s: failed to write to websocket: %v", conn.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				logger.Warnf("conn %s: ping failed: %v. Assuming disconnect.", conn.ID, err)
				return
			}
		}
	}
}
