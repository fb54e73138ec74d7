package models

import (
	"github.com/google/uuid"
)

// Room represents a virtual space where players gather to play rounds together.
type Room struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	Code         string    `json:"code"`
	CreatedAtUTC int64     `json:"created_at_utc"`
	// IsActive is true while a game is in progress in the room.
	IsActive bool `json:"is_active"`
}
