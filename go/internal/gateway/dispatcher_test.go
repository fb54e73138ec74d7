package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"github.com/mcdev12/lunchwheel/go/internal/games"
	"github.com/mcdev12/lunchwheel/go/internal/models"
)

type fakeGameStore struct {
	mu          sync.Mutex
	startErr    error
	submitErr   error
	finalizeErr error

	started   []games.CreateGameRequest
	meals     []games.SubmitMealRequest
	finalized []games.FinalizeGameRequest

	lastGameID uuid.UUID
}

func (f *fakeGameStore) StartGame(ctx context.Context, req games.CreateGameRequest) (*models.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return nil, f.startErr
	}
	f.started = append(f.started, req)
	f.lastGameID = uuid.New()
	return &models.Game{
		ID:       f.lastGameID,
		RoomID:   req.RoomID,
		IsActive: true,
		Players:  req.Players,
	}, nil
}

func (f *fakeGameStore) SubmitMeal(ctx context.Context, req games.SubmitMealRequest) (*models.Meal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.submitErr != nil {
		return nil, f.submitErr
	}
	f.meals = append(f.meals, req)
	return &models.Meal{
		ID:       uuid.New(),
		GameID:   req.GameID,
		Player:   req.Player,
		Amount:   req.Meal.Amount,
		Currency: req.Meal.Currency,
	}, nil
}

func (f *fakeGameStore) FinalizeGame(ctx context.Context, req games.FinalizeGameRequest) (*models.Game, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.finalizeErr != nil {
		return nil, f.finalizeErr
	}
	f.finalized = append(f.finalized, req)
	loser := req.Loser
	return &models.Game{ID: req.GameID, Winners: req.Winners, Loser: &loser}, nil
}

type activation struct {
	roomID uuid.UUID
	active bool
}

type fakeRooms struct {
	mu          sync.Mutex
	setActerr   error
	activations []activation
}

func (f *fakeRooms) SetActive(ctx context.Context, roomID uuid.UUID, active bool) (*models.Room, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.setActerr != nil {
		return nil, f.setActerr
	}
	f.activations = append(f.activations, activation{roomID: roomID, active: active})
	return &models.Room{ID: roomID, IsActive: active}, nil
}

func newTestDispatcher() (*Dispatcher, *ConnectionManager, *RoomStateStore, *fakeGameStore, *fakeRooms) {
	cm := NewConnectionManager(DefaultConnectionConfig())
	store := NewRoomStateStore(cm)
	gameStore := &fakeGameStore{}
	roomStore := &fakeRooms{}
	d := NewDispatcher(cm, store, gameStore, roomStore, nil)
	cm.SetHandler(d)
	return d, cm, store, gameStore, roomStore
}

func message(t *testing.T, fields map[string]interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("failed to build message: %v", err)
	}
	return data
}

func countType(types []string, want MessageType) int {
	n := 0
	for _, tp := range types {
		if tp == string(want) {
			n++
		}
	}
	return n
}

func TestDispatcherMalformedInput(t *testing.T) {
	d, cm, _, _, _ := newTestDispatcher()
	roomID := uuid.New()
	conn := newTestConnection(roomID, "Alice")
	cm.Register(conn)
	ctx := context.Background()

	t.Run("missing type", func(t *testing.T) {
		d.HandleMessage(ctx, conn, []byte(`{"player":"Alice"}`))
		types := receivedTypes(t, conn)
		if len(types) != 1 || types[0] != string(MessageTypeError) {
			t.Errorf("expected a single targeted ERROR, got %v", types)
		}
	})

	t.Run("unknown type", func(t *testing.T) {
		d.HandleMessage(ctx, conn, []byte(`{"type":"TELEPORT"}`))
		types := receivedTypes(t, conn)
		if len(types) != 1 || types[0] != string(MessageTypeError) {
			t.Errorf("expected a single targeted ERROR, got %v", types)
		}
	})

	t.Run("unparseable frame", func(t *testing.T) {
		d.HandleMessage(ctx, conn, []byte(`{not json`))
		types := receivedTypes(t, conn)
		if len(types) != 1 || types[0] != string(MessageTypeError) {
			t.Errorf("expected a single targeted ERROR, got %v", types)
		}
	})
}

func TestDispatcherJoin(t *testing.T) {
	ctx := context.Background()

	t.Run("join broadcasts the player list", func(t *testing.T) {
		d, cm, _, _, _ := newTestDispatcher()
		roomID := uuid.New()
		alice := newTestConnection(roomID, "Alice")
		cm.Register(alice)

		d.HandleMessage(ctx, alice, message(t, map[string]interface{}{
			"type": "JOIN", "player": "Alice",
		}))

		frames := received(t, alice)
		if len(frames) != 1 || frames[0]["type"] != string(MessageTypePlayerList) {
			t.Fatalf("expected PLAYER_LIST, got %v", frames)
		}
		players := frames[0]["players"].([]interface{})
		if len(players) != 1 || players[0] != "Alice" {
			t.Errorf("expected [Alice], got %v", players)
		}
	})

	t.Run("joining twice leaves one registry entry", func(t *testing.T) {
		d, cm, _, _, _ := newTestDispatcher()
		roomID := uuid.New()
		alice := newTestConnection(roomID, "Alice")
		cm.Register(alice)

		join := message(t, map[string]interface{}{"type": "JOIN", "player": "Alice"})
		d.HandleMessage(ctx, alice, join)
		d.HandleMessage(ctx, alice, join)

		if got := cm.Players(roomID); len(got) != 1 {
			t.Errorf("expected 1 registry entry, got %v", got)
		}

		frames := received(t, alice)
		for _, frame := range frames {
			if frame["type"] != string(MessageTypePlayerList) {
				t.Errorf("unexpected frame %v", frame)
				continue
			}
			if players := frame["players"].([]interface{}); len(players) != 1 {
				t.Errorf("player duplicated in broadcast: %v", players)
			}
		}
	})

	t.Run("name taken by another connection is a targeted error", func(t *testing.T) {
		d, cm, _, _, _ := newTestDispatcher()
		roomID := uuid.New()
		alice := newTestConnection(roomID, "Alice")
		cm.Register(alice)

		impostor := newTestConnection(roomID, "Alice")
		d.HandleMessage(ctx, impostor, message(t, map[string]interface{}{
			"type": "JOIN", "player": "Alice",
		}))

		if types := receivedTypes(t, impostor); countType(types, MessageTypeError) != 1 {
			t.Errorf("expected targeted ERROR for impostor, got %v", types)
		}
		if types := receivedTypes(t, alice); countType(types, MessageTypeError) != 0 {
			t.Errorf("error leaked to other connections: %v", types)
		}
		if got := cm.Players(roomID); len(got) != 1 {
			t.Errorf("registry changed on rejected join: %v", got)
		}
	})
}

func TestDispatcherRejoin(t *testing.T) {
	d, cm, store, gameStore, _ := newTestDispatcher()
	ctx := context.Background()
	roomID := uuid.New()

	alice := newTestConnection(roomID, "Alice")
	cm.Register(alice)
	d.HandleMessage(ctx, alice, message(t, map[string]interface{}{
		"type": "START_GAME", "players": []string{"Alice"},
	}))
	received(t, alice)

	rejoiner := newTestConnection(roomID, "Bob")
	d.HandleMessage(ctx, rejoiner, message(t, map[string]interface{}{
		"type": "REJOIN", "player": "Bob",
	}))

	frames := received(t, rejoiner)
	if len(frames) != 2 {
		t.Fatalf("expected GAME_STATE + PLAYER_LIST, got %v", frames)
	}
	snapshot := frames[0]
	if snapshot["type"] != string(MessageTypeGameState) {
		t.Fatalf("expected GAME_STATE first, got %v", snapshot["type"])
	}
	if snapshot["gameStarted"] != true {
		t.Error("snapshot should reflect the started game")
	}
	if snapshot["gameId"] != gameStore.lastGameID.String() {
		t.Errorf("snapshot gameId mismatch: %v", snapshot["gameId"])
	}

	state := store.Get(roomID)
	if len(state.Players) != 2 {
		t.Errorf("expected both players in refreshed state, got %v", state.Players)
	}
}

func TestDispatcherStartGame(t *testing.T) {
	ctx := context.Background()

	t.Run("starts a game and broadcasts it", func(t *testing.T) {
		d, cm, store, gameStore, roomStore := newTestDispatcher()
		roomID := uuid.New()
		alice := newTestConnection(roomID, "Alice")
		bob := newTestConnection(roomID, "Bob")
		cm.Register(alice)
		cm.Register(bob)

		d.HandleMessage(ctx, alice, message(t, map[string]interface{}{
			"type": "START_GAME", "players": []string{"Alice", "Bob"},
		}))

		for _, conn := range []*Connection{alice, bob} {
			frames := received(t, conn)
			if len(frames) != 1 || frames[0]["type"] != string(MessageTypeGameStarted) {
				t.Fatalf("%s: expected GAME_STARTED, got %v", conn.Player, frames)
			}
			if frames[0]["game_id"] != gameStore.lastGameID.String() {
				t.Errorf("game_id mismatch: %v", frames[0]["game_id"])
			}
		}

		state := store.Get(roomID)
		if !state.GameStarted || state.GameID != gameStore.lastGameID.String() {
			t.Errorf("room state not initialized: %+v", state)
		}
		if len(roomStore.activations) != 1 || !roomStore.activations[0].active {
			t.Errorf("expected one SetActive(true) call, got %v", roomStore.activations)
		}
	})

	t.Run("persistence rejection leaves state untouched", func(t *testing.T) {
		d, cm, store, gameStore, roomStore := newTestDispatcher()
		roomID := uuid.New()
		alice := newTestConnection(roomID, "Alice")
		cm.Register(alice)
		gameStore.startErr = games.ErrActiveGameExists

		d.HandleMessage(ctx, alice, message(t, map[string]interface{}{
			"type": "START_GAME", "players": []string{"Alice"},
		}))

		types := receivedTypes(t, alice)
		if countType(types, MessageTypeError) != 1 || countType(types, MessageTypeGameStarted) != 0 {
			t.Errorf("expected only a targeted ERROR, got %v", types)
		}
		if state := store.Get(roomID); state.GameStarted {
			t.Error("state mutated despite persistence rejection")
		}
		if len(roomStore.activations) != 0 {
			t.Errorf("room activated despite failed start: %v", roomStore.activations)
		}
	})

	t.Run("empty roster is rejected", func(t *testing.T) {
		d, cm, _, gameStore, _ := newTestDispatcher()
		roomID := uuid.New()
		alice := newTestConnection(roomID, "Alice")
		cm.Register(alice)

		d.HandleMessage(ctx, alice, message(t, map[string]interface{}{
			"type": "START_GAME", "players": []string{},
		}))

		if types := receivedTypes(t, alice); countType(types, MessageTypeError) != 1 {
			t.Errorf("expected targeted ERROR, got %v", types)
		}
		if len(gameStore.started) != 0 {
			t.Error("game created despite empty roster")
		}
	})
}

func startGameForTest(t *testing.T, d *Dispatcher, conns []*Connection) string {
	t.Helper()

	players := make([]string, len(conns))
	for i, conn := range conns {
		players[i] = conn.Player
	}
	d.HandleMessage(context.Background(), conns[0], message(t, map[string]interface{}{
		"type": "START_GAME", "players": players,
	}))

	var gameID string
	for _, conn := range conns {
		for _, frame := range received(t, conn) {
			if frame["type"] == string(MessageTypeGameStarted) {
				gameID = frame["game_id"].(string)
			}
		}
	}
	if gameID == "" {
		t.Fatal("game did not start")
	}
	return gameID
}

func TestDispatcherSubmitMeal(t *testing.T) {
	ctx := context.Background()

	t.Run("last submission completes the cycle exactly once", func(t *testing.T) {
		d, cm, store, _, roomStore := newTestDispatcher()
		roomID := uuid.New()
		alice := newTestConnection(roomID, "Alice")
		bob := newTestConnection(roomID, "Bob")
		cm.Register(alice)
		cm.Register(bob)
		gameID := startGameForTest(t, d, []*Connection{alice, bob})

		d.HandleMessage(ctx, alice, message(t, map[string]interface{}{
			"type": "SUBMIT_MEAL", "player": "Alice", "game_id": gameID,
			"meal": map[string]interface{}{"amount": 12.5, "currency": "USD"},
		}))

		types := receivedTypes(t, bob)
		if countType(types, MessageTypeMealSubmitted) != 1 {
			t.Fatalf("expected MEAL_SUBMITTED after first submission, got %v", types)
		}
		if countType(types, MessageTypeAllMealsSubmitted) != 0 {
			t.Fatalf("completion fired early: %v", types)
		}
		received(t, alice)

		d.HandleMessage(ctx, bob, message(t, map[string]interface{}{
			"type": "SUBMIT_MEAL", "player": "Bob", "game_id": gameID,
			"meal": map[string]interface{}{"amount": 8.0, "currency": "USD"},
		}))

		for _, conn := range []*Connection{alice, bob} {
			types := receivedTypes(t, conn)
			if countType(types, MessageTypeMealSubmitted) != 1 ||
				countType(types, MessageTypeAllMealsSubmitted) != 1 ||
				countType(types, MessageTypeGameReset) != 1 {
				t.Errorf("%s: expected MEAL_SUBMITTED, ALL_MEALS_SUBMITTED, GAME_RESET once each, got %v", conn.Player, types)
			}
		}

		if state := store.Get(roomID); state.GameStarted {
			t.Error("room should be idle after the reset cycle")
		}
		// SetActive(true) at start, SetActive(false) on completion
		if len(roomStore.activations) != 2 || roomStore.activations[1].active {
			t.Errorf("expected final SetActive(false), got %v", roomStore.activations)
		}
	})

	t.Run("duplicate submission is rejected without state change", func(t *testing.T) {
		d, cm, store, gameStore, _ := newTestDispatcher()
		roomID := uuid.New()
		alice := newTestConnection(roomID, "Alice")
		bob := newTestConnection(roomID, "Bob")
		cm.Register(alice)
		cm.Register(bob)
		gameID := startGameForTest(t, d, []*Connection{alice, bob})

		submit := message(t, map[string]interface{}{
			"type": "SUBMIT_MEAL", "player": "Alice", "game_id": gameID,
			"meal": map[string]interface{}{"amount": 12.5, "currency": "USD"},
		})
		d.HandleMessage(ctx, alice, submit)
		received(t, alice)
		received(t, bob)

		gameStore.submitErr = games.ErrMealAlreadySubmitted
		d.HandleMessage(ctx, alice, submit)

		if types := receivedTypes(t, alice); countType(types, MessageTypeError) != 1 {
			t.Errorf("expected targeted ERROR on duplicate, got %v", types)
		}
		if types := receivedTypes(t, bob); len(types) != 0 {
			t.Errorf("duplicate submission leaked broadcasts: %v", types)
		}
		if state := store.Get(roomID); !state.GameStarted {
			t.Error("duplicate submission must not reset the game")
		}
	})

	t.Run("unconnected player cannot submit", func(t *testing.T) {
		d, cm, _, gameStore, _ := newTestDispatcher()
		roomID := uuid.New()
		alice := newTestConnection(roomID, "Alice")
		cm.Register(alice)
		gameID := startGameForTest(t, d, []*Connection{alice})

		d.HandleMessage(ctx, alice, message(t, map[string]interface{}{
			"type": "SUBMIT_MEAL", "player": "Ghost", "game_id": gameID,
			"meal": map[string]interface{}{"amount": 5.0, "currency": "EUR"},
		}))

		if types := receivedTypes(t, alice); countType(types, MessageTypeError) != 1 {
			t.Errorf("expected targeted ERROR, got %v", types)
		}
		if len(gameStore.meals) != 0 {
			t.Error("meal persisted for unconnected player")
		}
	})
}

func TestDispatcherConcurrentSubmissions(t *testing.T) {
	d, cm, _, _, _ := newTestDispatcher()
	ctx := context.Background()
	roomID := uuid.New()

	const n = 8
	conns := make([]*Connection, n)
	for i := range conns {
		conns[i] = newTestConnection(roomID, fmt.Sprintf("player-%d", i))
		cm.Register(conns[i])
	}
	gameID := startGameForTest(t, d, conns)

	var wg sync.WaitGroup
	for _, conn := range conns {
		wg.Add(1)
		go func(conn *Connection) {
			defer wg.Done()
			d.HandleMessage(ctx, conn, message(t, map[string]interface{}{
				"type": "SUBMIT_MEAL", "player": conn.Player, "game_id": gameID,
				"meal": map[string]interface{}{"amount": 10.0, "currency": "USD"},
			}))
		}(conn)
	}
	wg.Wait()

	for _, conn := range conns {
		types := receivedTypes(t, conn)
		if got := countType(types, MessageTypeAllMealsSubmitted); got != 1 {
			t.Errorf("%s: ALL_MEALS_SUBMITTED broadcast %d times, expected exactly 1", conn.Player, got)
		}
		if got := countType(types, MessageTypeGameReset); got != 1 {
			t.Errorf("%s: GAME_RESET broadcast %d times, expected exactly 1", conn.Player, got)
		}
		if got := countType(types, MessageTypeMealSubmitted); got != n {
			t.Errorf("%s: expected %d MEAL_SUBMITTED frames, got %d", conn.Player, n, got)
		}
	}
}

func TestDispatcherSpin(t *testing.T) {
	d, cm, store, _, _ := newTestDispatcher()
	ctx := context.Background()
	roomID := uuid.New()
	alice := newTestConnection(roomID, "Alice")
	cm.Register(alice)

	d.HandleMessage(ctx, alice, message(t, map[string]interface{}{
		"type": "SPIN", "player": "Alice",
	}))

	frames := received(t, alice)
	if len(frames) != 1 || frames[0]["type"] != string(MessageTypeSpined) {
		t.Fatalf("expected SPINED, got %v", frames)
	}
	score := int(frames[0]["score"].(float64))
	if score < 1 || score > 100 {
		t.Errorf("score %d out of range [1,100]", score)
	}
	if got := store.Get(roomID).Scores["Alice"]; got != score {
		t.Errorf("stored score %d does not match broadcast %d", got, score)
	}
}

func TestPickLoserTieBreak(t *testing.T) {
	scores := map[string]int{"A": 10, "B": 10, "C": 50}

	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		loser := pickLoser(scores)
		if loser == "C" {
			t.Fatal("player with the highest score chosen as loser")
		}
		seen[loser] = true
	}
	if !seen["A"] || !seen["B"] {
		t.Errorf("tie-break not uniform across candidates, saw %v", seen)
	}
}

func TestDispatcherEndGame(t *testing.T) {
	ctx := context.Background()

	t.Run("resolves loser and winners without resetting", func(t *testing.T) {
		d, cm, store, gameStore, _ := newTestDispatcher()
		roomID := uuid.New()
		conns := []*Connection{
			newTestConnection(roomID, "Alice"),
			newTestConnection(roomID, "Bob"),
			newTestConnection(roomID, "Carol"),
		}
		for _, conn := range conns {
			cm.Register(conn)
		}
		gameID := startGameForTest(t, d, conns)

		d.HandleMessage(ctx, conns[0], message(t, map[string]interface{}{
			"type": "END_GAME", "game_id": gameID,
			"scores": map[string]int{"Alice": 10, "Bob": 50, "Carol": 50},
		}))

		frames := received(t, conns[1])
		if len(frames) != 1 || frames[0]["type"] != string(MessageTypeGameEnded) {
			t.Fatalf("expected GAME_ENDED, got %v", frames)
		}
		if frames[0]["loser"] != "Alice" {
			t.Errorf("expected Alice to lose, got %v", frames[0]["loser"])
		}
		winners := frames[0]["winners"].([]interface{})
		if len(winners) != 2 {
			t.Errorf("expected 2 winners, got %v", winners)
		}

		if len(gameStore.finalized) != 1 || gameStore.finalized[0].Loser != "Alice" {
			t.Errorf("outcome not persisted: %v", gameStore.finalized)
		}

		state := store.Get(roomID)
		if state.Loser == nil || *state.Loser != "Alice" {
			t.Errorf("state loser not recorded: %+v", state)
		}
		if !state.GameStarted {
			t.Error("EndGame must not reset the room; reset belongs to the submission cycle")
		}
	})

	t.Run("empty scores are rejected", func(t *testing.T) {
		d, cm, _, gameStore, _ := newTestDispatcher()
		roomID := uuid.New()
		alice := newTestConnection(roomID, "Alice")
		cm.Register(alice)

		d.HandleMessage(ctx, alice, message(t, map[string]interface{}{
			"type": "END_GAME", "game_id": uuid.New().String(),
			"scores": map[string]int{},
		}))

		if types := receivedTypes(t, alice); countType(types, MessageTypeError) != 1 {
			t.Errorf("expected targeted ERROR, got %v", types)
		}
		if len(gameStore.finalized) != 0 {
			t.Error("outcome persisted despite empty scores")
		}
	})

	t.Run("persistence failure reaches sender only", func(t *testing.T) {
		d, cm, store, gameStore, _ := newTestDispatcher()
		roomID := uuid.New()
		alice := newTestConnection(roomID, "Alice")
		bob := newTestConnection(roomID, "Bob")
		cm.Register(alice)
		cm.Register(bob)
		gameID := startGameForTest(t, d, []*Connection{alice, bob})
		gameStore.finalizeErr = games.ErrGameNotFound

		d.HandleMessage(ctx, alice, message(t, map[string]interface{}{
			"type": "END_GAME", "game_id": gameID,
			"scores": map[string]int{"Alice": 1, "Bob": 2},
		}))

		if types := receivedTypes(t, alice); countType(types, MessageTypeError) != 1 {
			t.Errorf("expected targeted ERROR, got %v", types)
		}
		if types := receivedTypes(t, bob); len(types) != 0 {
			t.Errorf("failure leaked to other connections: %v", types)
		}
		if state := store.Get(roomID); state.Loser != nil {
			t.Error("state mutated despite persistence failure")
		}
	})
}

func TestDispatcherUserDisjoined(t *testing.T) {
	d, cm, _, _, _ := newTestDispatcher()
	ctx := context.Background()
	roomID := uuid.New()
	alice := newTestConnection(roomID, "Alice")
	bob := newTestConnection(roomID, "Bob")
	cm.Register(alice)
	cm.Register(bob)

	d.HandleMessage(ctx, bob, message(t, map[string]interface{}{
		"type": "USER_DISJOINED", "player": "Bob",
	}))

	types := receivedTypes(t, alice)
	if countType(types, MessageTypeUserDisjoined) != 1 || countType(types, MessageTypePlayerList) != 1 {
		t.Errorf("expected USER_DISJOINED + PLAYER_LIST, got %v", types)
	}
	if got := cm.Players(roomID); len(got) != 1 || got[0] != "Alice" {
		t.Errorf("expected [Alice], got %v", got)
	}
}

func TestDispatcherDisconnect(t *testing.T) {
	d, cm, store, _, _ := newTestDispatcher()
	roomID := uuid.New()
	alice := newTestConnection(roomID, "Alice")
	bob := newTestConnection(roomID, "Bob")
	cm.Register(alice)
	cm.Register(bob)

	state := NewRoomState()
	state.GameStarted = true
	store.Set(roomID, state)

	d.HandleDisconnect(bob)

	types := receivedTypes(t, alice)
	if countType(types, MessageTypeUserDisjoined) != 1 || countType(types, MessageTypePlayerList) != 1 {
		t.Errorf("expected USER_DISJOINED + PLAYER_LIST, got %v", types)
	}

	d.HandleDisconnect(alice)
	if cm.HasConnections(roomID) {
		t.Error("room should be removed from the registry once empty")
	}
	// RoomState has its own lifecycle; disconnects alone never clear it.
	if got := store.Get(roomID); !got.GameStarted {
		t.Error("room state cleared by disconnect cleanup")
	}
}

func TestDispatcherEndToEndScenario(t *testing.T) {
	d, cm, store, _, _ := newTestDispatcher()
	ctx := context.Background()
	roomID := uuid.New()

	alice := newTestConnection(roomID, "Alice")
	cm.Register(alice)
	d.HandleMessage(ctx, alice, message(t, map[string]interface{}{"type": "JOIN", "player": "Alice"}))

	bob := newTestConnection(roomID, "Bob")
	cm.Register(bob)
	d.HandleMessage(ctx, bob, message(t, map[string]interface{}{"type": "JOIN", "player": "Bob"}))

	frames := received(t, bob)
	last := frames[len(frames)-1]
	players := last["players"].([]interface{})
	if len(players) != 2 || players[0] != "Alice" || players[1] != "Bob" {
		t.Fatalf("expected roster [Alice Bob], got %v", players)
	}
	received(t, alice)

	gameID := startGameForTest(t, d, []*Connection{alice, bob})
	if _, err := uuid.Parse(gameID); err != nil {
		t.Fatalf("GAME_STARTED carried invalid game id %q", gameID)
	}

	d.HandleMessage(ctx, alice, message(t, map[string]interface{}{
		"type": "SUBMIT_MEAL", "player": "Alice", "game_id": gameID,
		"meal": map[string]interface{}{"amount": 12.5, "currency": "USD"},
	}))
	types := receivedTypes(t, alice)
	if countType(types, MessageTypeMealSubmitted) != 1 || countType(types, MessageTypeAllMealsSubmitted) != 0 {
		t.Fatalf("after first submission expected only MEAL_SUBMITTED, got %v", types)
	}
	received(t, bob)

	d.HandleMessage(ctx, bob, message(t, map[string]interface{}{
		"type": "SUBMIT_MEAL", "player": "Bob", "game_id": gameID,
		"meal": map[string]interface{}{"amount": 8.0, "currency": "USD"},
	}))

	want := []string{
		string(MessageTypeMealSubmitted),
		string(MessageTypeAllMealsSubmitted),
		string(MessageTypeGameReset),
	}
	got := receivedTypes(t, bob)
	if len(got) != len(want) {
		t.Fatalf("expected sequence %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected sequence %v, got %v", want, got)
		}
	}

	if state := store.Get(roomID); state.GameStarted {
		t.Error("room should return to idle after the full cycle")
	}
}
