package rooms

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/mcdev12/lunchwheel/go/internal/models"
)

// Repository implements room data access over Postgres
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new rooms repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

const roomColumns = "id, name, code, created_at_utc, is_active"

// CreateRoom inserts a new room row
func (r *Repository) CreateRoom(ctx context.Context, req CreateRoomRequest, createdAtUTC int64) (*models.Room, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO game_rooms (id, name, code, created_at_utc, is_active)
		VALUES ($1, $2, $3, $4, FALSE)
		RETURNING `+roomColumns,
		uuid.New(), req.Name, req.Code, createdAtUTC,
	)

	room, err := scanRoom(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create room: %w", err)
	}
	return room, nil
}

// GetRoom retrieves a room by ID
func (r *Repository) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+roomColumns+` FROM game_rooms WHERE id = $1`, id)

	room, err := scanRoom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get room: %w", err)
	}
	return room, nil
}

// ListJoinableRooms returns rooms without a game in progress
func (r *Repository) ListJoinableRooms(ctx context.Context) ([]models.Room, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roomColumns+` FROM game_rooms WHERE is_active = FALSE`)
	if err != nil {
		return nil, fmt.Errorf("failed to list rooms: %w", err)
	}
	defer rows.Close()

	var result []models.Room
	for rows.Next() {
		room, err := scanRoom(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan room: %w", err)
		}
		result = append(result, *room)
	}
	return result, rows.Err()
}

// SetActive updates a room's active flag and returns the updated row
func (r *Repository) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Room, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE game_rooms SET is_active = $2 WHERE id = $1
		RETURNING `+roomColumns,
		id, active,
	)

	room, err := scanRoom(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set room active: %w", err)
	}
	return room, nil
}

func scanRoom(row pgx.Row) (*models.Room, error) {
	var room models.Room
	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Code,
		&room.CreatedAtUTC,
		&room.IsActive,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}
