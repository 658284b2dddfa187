// Package comm holds the wire message types shared between the websocket
// layer and its clients.
package comm

import "encoding/json"

// WSMessage is the envelope for every websocket frame in both directions.
type WSMessage struct {
	Type string          `json:"type"` // e.g. "time-expired", "visibility"
	Data json.RawMessage `json:"data"`
}

// Websocket message types.
const (
	TypeTimeExpired = "time-expired"
	TypeVisibility  = "visibility"
	TypeGameChanged = "game-changed"
	TypeError       = "error"
)

// VisibilityPayload is sent by a client when its page visibility changes;
// a hidden page pauses the game's countdown without compensation.
type VisibilityPayload struct {
	GameID string `json:"gameId"`
	Hidden bool   `json:"hidden"`
}

// GameChangedPayload notifies subscribers that a game record mutated (or
// was deleted) and should be re-fetched.
type GameChangedPayload struct {
	GameID  string `json:"gameId"`
	Deleted bool   `json:"deleted"`
}
