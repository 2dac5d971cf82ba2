// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes used by the hall gateway.
// These provide more specific reasons for closure than standard codes.
const (
	BadSubprotocolError   = 3000 // Client offered subprotocols but not "bingo".
	InvalidAuthTokenError = 3001 // Provided auth token was invalid or expired.
	HallUnavailableError  = 3002 // The hall is shutting down or not running.
	SessionEndedError     = 3003 // The hall ended the session, e.g. the client fell too far behind.
)
