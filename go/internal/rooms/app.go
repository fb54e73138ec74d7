package rooms

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/lunchwheel/go/internal/models"
)

// CreateRoomRequest represents the data needed to create a new room
type CreateRoomRequest struct {
	Name string `json:"name"`
	Code string `json:"code"`
}

// RoomsRepository defines what the app layer needs from the repository
type RoomsRepository interface {
	CreateRoom(ctx context.Context, req CreateRoomRequest, createdAtUTC int64) (*models.Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	ListJoinableRooms(ctx context.Context) ([]models.Room, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Room, error)
}

// App handles rooms business logic
type App struct {
	repo  RoomsRepository
	clock clockwork.Clock
}

// NewApp creates a new rooms App
func NewApp(repo RoomsRepository, clock clockwork.Clock) *App {
	return &App{
		repo:  repo,
		clock: clock,
	}
}

// CreateRoom creates a new virtual game room
func (a *App) CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.Room, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("room name is required")
	}

	room, err := a.repo.CreateRoom(ctx, req, a.clock.Now().UTC().Unix())
	if err != nil {
		return nil, err
	}

	log.Info().Str("room_id", room.ID.String()).Str("name", room.Name).Msg("room created")
	return room, nil
}

// GetRoom retrieves a room by ID
func (a *App) GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error) {
	return a.repo.GetRoom(ctx, id)
}

// ListJoinableRooms returns rooms without a game in progress
func (a *App) ListJoinableRooms(ctx context.Context) ([]models.Room, error) {
	return a.repo.ListJoinableRooms(ctx)
}

// SetActive marks a room as having (or no longer having) a game in progress
func (a *App) SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Room, error) {
	room, err := a.repo.SetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}

	log.Info().Str("room_id", id.String()).Bool("is_active", active).Msg("room activity updated")
	return room, nil
}
