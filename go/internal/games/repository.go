package games

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/lunchwheel/go/internal/models"
)

// Repository implements game and meal data access over Postgres
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new games repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

const gameColumns = "id, room_id, created_at_utc, ended_at_utc, is_active, players, winners, loser"

// CreateGame inserts a new active game row for a room
func (r *Repository) CreateGame(ctx context.Context, req CreateGameRequest, createdAtUTC int64) (*models.Game, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO games (id, room_id, created_at_utc, is_active, players)
		VALUES ($1, $2, $3, TRUE, $4)
		RETURNING `+gameColumns,
		uuid.New(), req.RoomID, createdAtUTC, req.Players,
	)

	game, err := scanGame(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return game, nil
}

// GetGame retrieves a game by ID, meals included
func (r *Repository) GetGame(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE id = $1`, id)

	game, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	meals, err := r.GetMealsByGame(ctx, id)
	if err != nil {
		return nil, err
	}
	game.Meals = meals
	return game, nil
}

// GetActiveGameByRoom returns the active game for a room, or ErrGameNotFound
func (r *Repository) GetActiveGameByRoom(ctx context.Context, roomID uuid.UUID) (*models.Game, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE room_id = $1 AND is_active = TRUE`, roomID)

	game, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active game: %w", err)
	}
	return game, nil
}

// InsertMeal records one player's meal for a game
func (r *Repository) InsertMeal(ctx context.Context, gameID uuid.UUID, player string, price models.MealPrice) (*models.Meal, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO meals (id, game_id, player, amount, currency)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, game_id, player, amount, currency`,
		uuid.New(), gameID, player, price.Amount, price.Currency,
	)

	var meal models.Meal
	if err := row.Scan(&meal.ID, &meal.GameID, &meal.Player, &meal.Amount, &meal.Currency); err != nil {
		return nil, fmt.Errorf("failed to insert meal: %w", err)
	}
	return &meal, nil
}

// GetMealsByGame retrieves all meals recorded for a game
func (r *Repository) GetMealsByGame(ctx context.Context, gameID uuid.UUID) ([]models.Meal, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, game_id, player, amount, currency
		FROM meals WHERE game_id = $1`, gameID)
	if err != nil {
		return nil, fmt.Errorf("failed to get meals: %w", err)
	}
	defer rows.Close()

	var meals []models.Meal
	for rows.Next() {
		var meal models.Meal
		if err := rows.Scan(&meal.ID, &meal.GameID, &meal.Player, &meal.Amount, &meal.Currency); err != nil {
			return nil, fmt.Errorf("failed to scan meal: %w", err)
		}
		meals = append(meals, meal)
	}
	return meals, rows.Err()
}

// MarkGameEnded flips a game to inactive and stamps its end time
func (r *Repository) MarkGameEnded(ctx context.Context, gameID uuid.UUID, endedAtUTC int64) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE games SET is_active = FALSE, ended_at_utc = $2 WHERE id = $1`,
		gameID, endedAtUTC,
	)
	if err != nil {
		return fmt.Errorf("failed to mark game ended: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrGameNotFound
	}
	return nil
}

// FinalizeGame records winners and loser on a game and returns the updated row
func (r *Repository) FinalizeGame(ctx context.Context, req FinalizeGameRequest) (*models.Game, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE games SET winners = $2, loser = $3
		WHERE id = $1
		RETURNING `+gameColumns,
		req.GameID, req.Winners, req.Loser,
	)

	game, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrGameNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to finalize game: %w", err)
	}

	meals, err := r.GetMealsByGame(ctx, req.GameID)
	if err != nil {
		return nil, err
	}
	game.Meals = meals
	return game, nil
}

// ListEndedGames returns all ended games, newest first, meals included
func (r *Repository) ListEndedGames(ctx context.Context) ([]models.Game, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+gameColumns+` FROM games
		WHERE is_active = FALSE
		ORDER BY ended_at_utc DESC NULLS LAST`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ended games: %w", err)
	}
	defer rows.Close()

	var games []models.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, *game)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range games {
		meals, err := r.GetMealsByGame(ctx, games[i].ID)
		if err != nil {
			return nil, err
		}
		games[i].Meals = meals
	}
	return games, nil
}

func scanGame(row pgx.Row) (*models.Game, error) {
	var game models.Game
	err := row.Scan(
		&game.ID,
		&game.RoomID,
		&game.CreatedAtUTC,
		&game.EndedAtUTC,
		&game.IsActive,
		&game.Players,
		&game.Winners,
		&game.Loser,
	)
	if err != nil {
		return nil, err
	}
	return &game, nil
}
