// internal/handlers/ws_codes.go
package handlers

// Custom websocket close codes, more specific than the standard set.
const (
	BadSubprotocolError   = 3000 // Client connected with an unsupported subprotocol.
	InvalidAuthTokenError = 3001 // Auth token was invalid or expired.
	InvalidGameIDError    = 3002 // Target game id in the WS URL does not exist.
)
