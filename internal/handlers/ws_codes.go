// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the game handler.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidSeatTokenError = 3001 // Seat token missing, expired or badly signed.
	SeatMismatchError     = 3002 // Token was issued for another game.
	InvalidGameIDError    = 3003 // Game id in the URL does not exist.
)
