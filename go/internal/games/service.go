package games

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/lunchwheel/go/internal/models"
)

// GamesApp defines what the service layer needs from the games application
type GamesApp interface {
	StartGame(ctx context.Context, req CreateGameRequest) (*models.Game, error)
	SubmitMeal(ctx context.Context, req SubmitMealRequest) (*models.Meal, error)
	FinalizeGame(ctx context.Context, req FinalizeGameRequest) (*models.Game, error)
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	GetHistory(ctx context.Context) ([]models.Game, error)
}

// Service exposes the games HTTP API
type Service struct {
	app GamesApp
}

// NewService creates a new games HTTP service
func NewService(app GamesApp) *Service {
	return &Service{
		app: app,
	}
}

type startGamePayload struct {
	RoomID  string   `json:"room_id"`
	Players []string `json:"players"`
}

type submitMealPayload struct {
	GameID string           `json:"game_id"`
	Player string           `json:"player"`
	Meal   models.MealPrice `json:"meal"`
}

type endGamePayload struct {
	ID      string   `json:"id"`
	Winners []string `json:"winners"`
	Loser   string   `json:"loser"`
}

// HandleStartGame handles POST /v1/games/start_game
func (s *Service) HandleStartGame(w http.ResponseWriter, r *http.Request) {
	var payload startGamePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	roomID, err := uuid.Parse(payload.RoomID)
	if err != nil {
		http.Error(w, "invalid room_id format", http.StatusBadRequest)
		return
	}

	game, err := s.app.StartGame(r.Context(), CreateGameRequest{RoomID: roomID, Players: payload.Players})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, game)
}

// HandleSubmitMeal handles POST /v1/games/{id}/submit_meal
func (s *Service) HandleSubmitMeal(w http.ResponseWriter, r *http.Request) {
	var payload submitMealPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	gameID, err := uuid.Parse(payload.GameID)
	if err != nil {
		http.Error(w, "invalid game_id format", http.StatusBadRequest)
		return
	}

	meal, err := s.app.SubmitMeal(r.Context(), SubmitMealRequest{
		GameID: gameID,
		Player: payload.Player,
		Meal:   payload.Meal,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, meal)
}

// HandleEndGame handles PATCH /v1/games/{id}/end_game
func (s *Service) HandleEndGame(w http.ResponseWriter, r *http.Request) {
	var payload endGamePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	gameID, err := uuid.Parse(payload.ID)
	if err != nil {
		http.Error(w, "invalid game id format", http.StatusBadRequest)
		return
	}

	game, err := s.app.FinalizeGame(r.Context(), FinalizeGameRequest{
		GameID:  gameID,
		Winners: payload.Winners,
		Loser:   payload.Loser,
	})
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, game)
}

// HandleGetGame handles GET /v1/games/get_game/{id}
func (s *Service) HandleGetGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid game id format", http.StatusBadRequest)
		return
	}

	game, err := s.app.GetGame(r.Context(), gameID)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, game)
}

// HandleGetHistory handles GET /v1/games/history
func (s *Service) HandleGetHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.app.GetHistory(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	if history == nil {
		history = []models.Game{}
	}
	writeJSON(w, history)
}

// RegisterRoutes registers the games HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/games/start_game", s.HandleStartGame)
	mux.HandleFunc("POST /v1/games/{id}/submit_meal", s.HandleSubmitMeal)
	mux.HandleFunc("PATCH /v1/games/{id}/end_game", s.HandleEndGame)
	mux.HandleFunc("GET /v1/games/get_game/{id}", s.HandleGetGame)
	mux.HandleFunc("GET /v1/games/history", s.HandleGetHistory)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeAppError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrGameNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, ErrActiveGameExists),
		errors.Is(err, ErrPlayerNotInGame),
		errors.Is(err, ErrMealAlreadySubmitted):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.Error().Err(err).Msg("games request failed")
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
