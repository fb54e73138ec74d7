package models

import (
	"github.com/google/uuid"
)

// Game represents one durable round played by a roster of players within a room.
type Game struct {
	ID           uuid.UUID `json:"id"`
	RoomID       uuid.UUID `json:"room_id"`
	CreatedAtUTC int64     `json:"created_at_utc"`
	EndedAtUTC   *int64    `json:"ended_at_utc,omitempty"`
	// IsActive is true while the round is ongoing, false once it has ended.
	IsActive bool     `json:"is_active"`
	Players  []string `json:"players"`
	Winners  []string `json:"winners"`
	Loser    *string  `json:"loser,omitempty"`
	Meals    []Meal   `json:"meals"`
}
