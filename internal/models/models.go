// internal/models/models.go
package models

import (
	"github.com/coder/websocket"
	"github.com/google/uuid"
)

// User holds the persistent account identity behind a player.
type User struct {
	ID       uuid.UUID `json:"id"`
	Username string    `json:"username"`
	Email    string    `json:"email,omitempty"`
	Password string    `json:"-"` // bcrypt hash, never serialized
	Elo      int       `json:"elo"`
}

// Card is the service-side view of a playing card: the engine works with
// compact rank/suit pairs; clients address cards by UUID.
type Card struct {
	ID    uuid.UUID `json:"id"`
	Rank  string    `json:"rank"`
	Suit  string    `json:"suit"`
	Value int       `json:"value"`
}

// Player is a seat in a running game, bound to a user and (while online) a
// WebSocket connection.
type Player struct {
	ID        uuid.UUID       `json:"id"`
	User      *User           `json:"user,omitempty"`
	Conn      *websocket.Conn `json:"-"`
	Connected bool            `json:"connected"`
}

// GameAction is the envelope for every inbound client message.
type GameAction struct {
	ActionType string                 `json:"action"`
	Payload    map[string]interface{} `json:"payload,omitempty"`
}
