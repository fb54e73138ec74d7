package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/mcdev12/lunchwheel/go/internal/dbconfig"
)

// Room mirrors the JSON snapshot structure
type Room struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// defaultRooms is used when no snapshot file is given
var defaultRooms = []Room{
	{Name: "Friday Lunch Crew", Code: "FRIDAY"},
	{Name: "Office Roulette", Code: "OFFICE"},
	{Name: "Team Standup Stakes", Code: "STNDUP"},
}

func main() {
	// 1) Load the JSON snapshot, or fall back to the built-in demo set
	rooms := defaultRooms
	if len(os.Args) > 1 {
		data, err := os.ReadFile(os.Args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "read JSON: %v\n", err)
			os.Exit(1)
		}
		if err := json.Unmarshal(data, &rooms); err != nil {
			fmt.Fprintf(os.Stderr, "unmarshal JSON: %v\n", err)
			os.Exit(1)
		}
	}

	// 2) Connect using shared dbconfig
	cfg := dbconfig.NewConfigFromEnv()
	pool, err := pgxpool.New(context.Background(), cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	// 3) Upsert and count
	var (
		total    = len(rooms)
		inserted int
		skipped  int
		errs     int
	)

	now := time.Now().UTC().Unix()
	for _, r := range rooms {
		id := r.ID
		if id == "" {
			id = uuid.NewString()
		}
		cmdTag, err := pool.Exec(context.Background(), `
            INSERT INTO game_rooms (id, name, code, created_at_utc, is_active)
            VALUES ($1,$2,$3,$4,FALSE)
            ON CONFLICT (code) DO NOTHING
        `,
			id, r.Name, r.Code, now,
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error inserting room %s: %v\n", r.Name, err)
			errs++
			continue
		}
		if cmdTag.RowsAffected() == 1 {
			inserted++
		} else {
			skipped++
		}
	}

	// 4) Print summary
	fmt.Printf(
		"Rooms seed complete: %d total, %d inserted, %d skipped, %d errors\n",
		total, inserted, skipped, errs,
	)
}
