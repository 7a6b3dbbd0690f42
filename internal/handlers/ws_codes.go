// internal/handlers/ws_codes.go
package handlers

import "github.com/coder/websocket"

// Custom WebSocket close codes used by the lobby and game channels.
const (
	BadSubprotocolError   websocket.StatusCode = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError websocket.StatusCode = 3001 // No usable auth token came with the upgrade request.
	InvalidLobbyIDError   websocket.StatusCode = 3003 // Caller has no lobby, or its lobby is not in game.
)
