package games

import (
	"github.com/google/uuid"

	"github.com/mcdev12/lunchwheel/go/internal/models"
)

// CreateGameRequest represents the data needed to start a new game
type CreateGameRequest struct {
	RoomID  uuid.UUID `json:"room_id"`
	Players []string  `json:"players"`
}

// SubmitMealRequest represents one player's meal submission for a game
type SubmitMealRequest struct {
	GameID uuid.UUID        `json:"game_id"`
	Player string           `json:"player"`
	Meal   models.MealPrice `json:"meal"`
}

// FinalizeGameRequest records the outcome of a game
type FinalizeGameRequest struct {
	GameID  uuid.UUID `json:"game_id"`
	Winners []string  `json:"winners"`
	Loser   string    `json:"loser"`
}
