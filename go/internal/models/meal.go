package models

import (
	"github.com/google/uuid"
)

// Meal represents the reported lunch cost for one player in one game.
type Meal struct {
	ID       uuid.UUID `json:"id"`
	GameID   uuid.UUID `json:"game_id"`
	Player   string    `json:"player"`
	Amount   float64   `json:"amount"`
	Currency string    `json:"currency"`
}

// MealPrice is the amount/currency pair as submitted by a player.
type MealPrice struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}
