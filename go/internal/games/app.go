package games

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/lunchwheel/go/internal/models"
)

// GamesRepository defines what the app layer needs from the repository
type GamesRepository interface {
	CreateGame(ctx context.Context, req CreateGameRequest, createdAtUTC int64) (*models.Game, error)
	GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error)
	GetActiveGameByRoom(ctx context.Context, roomID uuid.UUID) (*models.Game, error)
	InsertMeal(ctx context.Context, gameID uuid.UUID, player string, price models.MealPrice) (*models.Meal, error)
	GetMealsByGame(ctx context.Context, gameID uuid.UUID) ([]models.Meal, error)
	MarkGameEnded(ctx context.Context, gameID uuid.UUID, endedAtUTC int64) error
	FinalizeGame(ctx context.Context, req FinalizeGameRequest) (*models.Game, error)
	ListEndedGames(ctx context.Context) ([]models.Game, error)
}

// App handles games business logic
type App struct {
	repo  GamesRepository
	clock clockwork.Clock
}

// NewApp creates a new games App
func NewApp(repo GamesRepository, clock clockwork.Clock) *App {
	return &App{
		repo:  repo,
		clock: clock,
	}
}

// StartGame starts a new game in a room. At most one game may be active
// per room at a time.
func (a *App) StartGame(ctx context.Context, req CreateGameRequest) (*models.Game, error) {
	if len(req.Players) == 0 {
		return nil, fmt.Errorf("cannot start game with empty roster")
	}

	_, err := a.repo.GetActiveGameByRoom(ctx, req.RoomID)
	if err == nil {
		return nil, ErrActiveGameExists
	}
	if !errors.Is(err, ErrGameNotFound) {
		return nil, fmt.Errorf("failed to check for active game: %w", err)
	}

	game, err := a.repo.CreateGame(ctx, req, a.clock.Now().UTC().Unix())
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("game_id", game.ID.String()).
		Str("room_id", game.RoomID.String()).
		Strs("players", game.Players).
		Msg("game started")
	return game, nil
}

// SubmitMeal records one player's meal cost for a game. A player may submit
// only once per game, and only if they are part of the game's roster. When
// the last roster member submits, the game row is marked ended.
func (a *App) SubmitMeal(ctx context.Context, req SubmitMealRequest) (*models.Meal, error) {
	game, err := a.repo.GetGame(ctx, req.GameID)
	if err != nil {
		return nil, err
	}

	inRoster := false
	for _, p := range game.Players {
		if p == req.Player {
			inRoster = true
			break
		}
	}
	if !inRoster {
		return nil, ErrPlayerNotInGame
	}

	for _, m := range game.Meals {
		if m.Player == req.Player {
			return nil, ErrMealAlreadySubmitted
		}
	}

	meal, err := a.repo.InsertMeal(ctx, req.GameID, req.Player, req.Meal)
	if err != nil {
		return nil, err
	}

	meals, err := a.repo.GetMealsByGame(ctx, req.GameID)
	if err != nil {
		return nil, err
	}
	if len(meals) == len(game.Players) {
		if err := a.repo.MarkGameEnded(ctx, req.GameID, a.clock.Now().UTC().Unix()); err != nil {
			return nil, err
		}
		log.Info().Str("game_id", req.GameID.String()).Msg("all meals submitted, game marked ended")
	}

	return meal, nil
}

// FinalizeGame records the outcome of a game
func (a *App) FinalizeGame(ctx context.Context, req FinalizeGameRequest) (*models.Game, error) {
	game, err := a.repo.FinalizeGame(ctx, req)
	if err != nil {
		return nil, err
	}

	log.Info().
		Str("game_id", game.ID.String()).
		Str("loser", req.Loser).
		Strs("winners", req.Winners).
		Msg("game finalized")
	return game, nil
}

// GetGame retrieves a game by ID
func (a *App) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	return a.repo.GetGame(ctx, id)
}

// GetHistory returns all ended games, newest first
func (a *App) GetHistory(ctx context.Context) ([]models.Game, error) {
	return a.repo.ListEndedGames(ctx)
}
