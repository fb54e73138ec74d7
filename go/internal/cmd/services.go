package main

import (
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"

	"github.com/mcdev12/lunchwheel/go/internal/games"
	"github.com/mcdev12/lunchwheel/go/internal/gateway"
	"github.com/mcdev12/lunchwheel/go/internal/rooms"
)

type Services struct {
	Rooms   *rooms.Service
	Games   *games.Service
	Gateway *gateway.Service
}

func setupServices(pool *pgxpool.Pool, cfg *Config) (*Services, error) {
	// Wire up dependency injection chain
	// Database layer → Repository layer → App layer → Service layer
	clock := clockwork.NewRealClock()

	// Rooms
	roomsRepo := rooms.NewRepository(pool)
	roomsApp := rooms.NewApp(roomsRepo, clock)
	roomsService := rooms.NewService(roomsApp)

	// Games
	gamesRepo := games.NewRepository(pool)
	gamesApp := games.NewApp(gamesRepo, clock)
	gamesService := games.NewService(gamesApp)

	// Gateway: folds room websocket events into state, persisting through
	// the games and rooms apps
	gatewayService, err := gateway.NewService(cfg.gatewayConfig(), gamesApp, roomsApp)
	if err != nil {
		return nil, fmt.Errorf("failed to create gateway service: %w", err)
	}

	return &Services{
		Rooms:   roomsService,
		Games:   gamesService,
		Gateway: gatewayService,
	}, nil
}
