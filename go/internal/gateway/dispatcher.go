package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/lunchwheel/go/internal/games"
	"github.com/mcdev12/lunchwheel/go/internal/models"
)

// GameStore is the durable game surface the dispatcher drives. The games app
// implements it.
type GameStore interface {
	StartGame(ctx context.Context, req games.CreateGameRequest) (*models.Game, error)
	SubmitMeal(ctx context.Context, req games.SubmitMealRequest) (*models.Meal, error)
	FinalizeGame(ctx context.Context, req games.FinalizeGameRequest) (*models.Game, error)
}

// RoomActivator flips the durable "game in progress" flag on a room. The
// rooms app implements it.
type RoomActivator interface {
	SetActive(ctx context.Context, roomID uuid.UUID, active bool) (*models.Room, error)
}

// EventPublisher mirrors room notifications onto an external feed. May be nil.
type EventPublisher interface {
	Publish(roomID uuid.UUID, messageType MessageType, message interface{})
}

// Dispatcher folds inbound room events into consistent, broadcast-visible
// room state. Every event for a room runs under that room's lock, durable
// writes included, so transitions like "last meal submitted" fire exactly
// once. Different rooms proceed fully in parallel.
type Dispatcher struct {
	manager   *ConnectionManager
	state     *RoomStateStore
	gameStore GameStore
	rooms     RoomActivator
	publisher EventPublisher

	mu    sync.Mutex
	locks map[uuid.UUID]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

// NewDispatcher creates a dispatcher. publisher may be nil.
func NewDispatcher(manager *ConnectionManager, state *RoomStateStore, gameStore GameStore, rooms RoomActivator, publisher EventPublisher) *Dispatcher {
	return &Dispatcher{
		manager:   manager,
		state:     state,
		gameStore: gameStore,
		rooms:     rooms,
		publisher: publisher,
		locks:     make(map[uuid.UUID]*roomLock),
	}
}

// acquireRoom takes the room's exclusive lock, creating it lazily. Locks are
// refcounted so they disappear once no event for the room is in flight.
func (d *Dispatcher) acquireRoom(roomID uuid.UUID) *roomLock {
	d.mu.Lock()
	l := d.locks[roomID]
	if l == nil {
		l = &roomLock{}
		d.locks[roomID] = l
	}
	l.refs++
	d.mu.Unlock()

	l.mu.Lock()
	return l
}

func (d *Dispatcher) releaseRoom(roomID uuid.UUID, l *roomLock) {
	l.mu.Unlock()

	d.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(d.locks, roomID)
	}
	d.mu.Unlock()
}

// HandleMessage decodes one inbound frame and runs it through the room's
// state machine. Malformed input and precondition failures never close the
// connection; they produce a targeted error to the sender only.
func (d *Dispatcher) HandleMessage(ctx context.Context, conn *Connection, raw []byte) {
	var envelope InboundEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		d.manager.SendTo(conn, NewErrorNotification("invalid message payload"))
		return
	}
	if envelope.Type == "" {
		d.manager.SendTo(conn, NewErrorNotification("missing message type"))
		return
	}

	payload, err := ParsePayload(envelope.Type, raw)
	if err != nil {
		d.manager.SendTo(conn, NewErrorNotification(err.Error()))
		return
	}

	l := d.acquireRoom(conn.RoomID)
	defer d.releaseRoom(conn.RoomID, l)

	switch p := payload.(type) {
	case JoinPayload:
		d.handleJoin(conn, p)
	case RejoinPayload:
		d.handleRejoin(conn, p)
	case StartGamePayload:
		d.handleStartGame(ctx, conn, p)
	case SubmitMealPayload:
		d.handleSubmitMeal(ctx, conn, p)
	case SpinPayload:
		d.handleSpin(conn, p)
	case EndGamePayload:
		d.handleEndGame(ctx, conn, p)
	case UserDisjoinedPayload:
		d.handleUserDisjoined(conn, p)
	}
}

// HandleDisconnect runs transport-level disconnect cleanup as one more
// serialized room event, so it never interleaves with in-flight handling.
func (d *Dispatcher) HandleDisconnect(conn *Connection) {
	roomID := conn.RoomID

	l := d.acquireRoom(roomID)
	defer d.releaseRoom(roomID, l)

	player, registered := d.manager.PlayerFor(roomID, conn)
	d.manager.Deregister(conn)

	if registered {
		d.broadcast(roomID, MessageTypeUserDisjoined, UserDisjoinedNotification{
			Type:   MessageTypeUserDisjoined,
			Player: player,
		})
	}

	if d.manager.HasConnections(roomID) {
		d.broadcastPlayerList(roomID)
	}

	log.Info().
		Str("player", player).
		Str("room_id", roomID.String()).
		Msg("player disconnected")
}

func (d *Dispatcher) handleJoin(conn *Connection, payload JoinPayload) {
	if payload.Player == "" {
		d.manager.SendTo(conn, NewErrorNotification("missing 'player' in data"))
		return
	}

	if !d.registerAs(conn, payload.Player) {
		d.manager.SendTo(conn, NewErrorNotification(fmt.Sprintf(
			"username %q is already taken in room %q", payload.Player, conn.RoomID)))
		return
	}

	state := d.state.Get(conn.RoomID)
	d.state.Set(conn.RoomID, state)

	d.broadcastPlayerList(conn.RoomID)
}

// registerAs registers conn in its room under the given name. Registration
// is idempotent for a connection that already holds the name; it fails when
// a different live connection owns it, or when conn is already registered
// under another name.
func (d *Dispatcher) registerAs(conn *Connection, player string) bool {
	if current, ok := d.manager.PlayerFor(conn.RoomID, conn); ok {
		return current == player
	}
	conn.Player = player
	return d.manager.Register(conn)
}

func (d *Dispatcher) handleRejoin(conn *Connection, payload RejoinPayload) {
	if payload.Player == "" {
		d.manager.SendTo(conn, NewErrorNotification("missing 'player' in data"))
		return
	}

	if !d.registerAs(conn, payload.Player) {
		d.manager.SendTo(conn, NewErrorNotification(fmt.Sprintf(
			"username %q is already taken in room %q", payload.Player, conn.RoomID)))
		return
	}

	state := d.state.Get(conn.RoomID)
	d.state.Set(conn.RoomID, state)

	d.manager.SendTo(conn, GameStateNotification{
		Type:          MessageTypeGameState,
		GameStarted:   state.GameStarted,
		GameEnded:     state.GameEnded,
		GameID:        state.GameID,
		Players:       state.Players,
		Loser:         state.Loser,
		Winners:       state.Winners,
		MealSubmitted: state.MealSubmitted,
		Scores:        state.Scores,
	})

	d.broadcastPlayerList(conn.RoomID)
}

func (d *Dispatcher) handleStartGame(ctx context.Context, conn *Connection, payload StartGamePayload) {
	if len(payload.Players) == 0 {
		d.manager.SendTo(conn, NewErrorNotification("missing 'players' field in the data payload"))
		return
	}

	// Durable writes come first; in-memory state only changes once they
	// succeed, so a rejected start leaves the room exactly as it was.
	game, err := d.gameStore.StartGame(ctx, games.CreateGameRequest{
		RoomID:  conn.RoomID,
		Players: payload.Players,
	})
	if err != nil {
		d.manager.SendTo(conn, NewErrorNotification(err.Error()))
		return
	}

	if _, err := d.rooms.SetActive(ctx, conn.RoomID, true); err != nil {
		d.manager.SendTo(conn, NewErrorNotification(err.Error()))
		return
	}

	state := NewRoomState()
	state.GameStarted = true
	state.GameID = game.ID.String()
	state.Players = payload.Players
	d.state.Set(conn.RoomID, state)

	d.broadcast(conn.RoomID, MessageTypeGameStarted, GameStartedNotification{
		Type:    MessageTypeGameStarted,
		Message: "A new game has started!",
		GameID:  game.ID.String(),
	})
}

func (d *Dispatcher) handleSubmitMeal(ctx context.Context, conn *Connection, payload SubmitMealPayload) {
	if payload.Player == "" || payload.GameID == "" || payload.Meal == nil {
		d.manager.SendTo(conn, NewErrorNotification("missing required fields: 'player', 'meal', or 'game_id'"))
		return
	}

	gameID, err := uuid.Parse(payload.GameID)
	if err != nil {
		d.manager.SendTo(conn, NewErrorNotification("invalid game_id format"))
		return
	}

	connected := false
	for _, p := range d.manager.Players(conn.RoomID) {
		if p == payload.Player {
			connected = true
			break
		}
	}
	if !connected {
		d.manager.SendTo(conn, NewErrorNotification("you can only submit a meal for yourself"))
		return
	}

	// Duplicate submission is checked against the durable record, not just
	// memory; a rejection leaves room state untouched.
	meal, err := d.gameStore.SubmitMeal(ctx, games.SubmitMealRequest{
		GameID: gameID,
		Player: payload.Player,
		Meal:   *payload.Meal,
	})
	if err != nil {
		d.manager.SendTo(conn, NewErrorNotification(err.Error()))
		return
	}

	d.broadcast(conn.RoomID, MessageTypeMealSubmitted, MealSubmittedNotification{
		Type:    MessageTypeMealSubmitted,
		Message: "Meal submitted!",
		Player:  payload.Player,
		Meal:    models.MealPrice{Amount: meal.Amount, Currency: meal.Currency},
	})

	d.state.MarkMealSubmitted(conn.RoomID, payload.Player)

	state := d.state.Get(conn.RoomID)
	state.MealSubmitted[payload.Player] = true
	d.state.Set(conn.RoomID, state)

	if !d.state.AllSubmitted(conn.RoomID) {
		return
	}

	if _, err := d.rooms.SetActive(ctx, conn.RoomID, false); err != nil {
		d.manager.SendTo(conn, NewErrorNotification(err.Error()))
		return
	}

	d.broadcast(conn.RoomID, MessageTypeAllMealsSubmitted, AllMealsSubmittedNotification{
		Type:    MessageTypeAllMealsSubmitted,
		Message: "All meals have been submitted!",
	})

	d.state.ResetSubmissions(conn.RoomID)
	d.state.Reset(conn.RoomID)

	d.broadcast(conn.RoomID, MessageTypeGameReset, GameResetNotification{
		Type:    MessageTypeGameReset,
		Message: "Game state has been reset.",
	})
}

func (d *Dispatcher) handleSpin(conn *Connection, payload SpinPayload) {
	if payload.Player == "" {
		d.manager.SendTo(conn, NewErrorNotification("missing 'player' in data"))
		return
	}

	score := rand.IntN(100) + 1

	state := d.state.Get(conn.RoomID)
	state.Scores[payload.Player] = score
	d.state.Set(conn.RoomID, state)

	d.broadcast(conn.RoomID, MessageTypeSpined, SpinNotification{
		Type:   MessageTypeSpined,
		Player: payload.Player,
		Score:  score,
	})
}

func (d *Dispatcher) handleEndGame(ctx context.Context, conn *Connection, payload EndGamePayload) {
	if len(payload.Scores) == 0 {
		d.manager.SendTo(conn, NewErrorNotification("cannot end game without scores"))
		return
	}

	gameID, err := uuid.Parse(payload.GameID)
	if err != nil {
		d.manager.SendTo(conn, NewErrorNotification("invalid game_id format"))
		return
	}

	loser := pickLoser(payload.Scores)
	players := d.manager.Players(conn.RoomID)
	winners := make([]string, 0, len(players))
	for _, p := range players {
		if p != loser {
			winners = append(winners, p)
		}
	}

	if _, err := d.gameStore.FinalizeGame(ctx, games.FinalizeGameRequest{
		GameID:  gameID,
		Winners: winners,
		Loser:   loser,
	}); err != nil {
		d.manager.SendTo(conn, NewErrorNotification(err.Error()))
		return
	}

	d.broadcast(conn.RoomID, MessageTypeGameEnded, GameEndedNotification{
		Type:    MessageTypeGameEnded,
		Message: fmt.Sprintf("Game over! %s loses and pays for lunch!", loser),
		Loser:   loser,
		Winners: winners,
	})

	// The room is not reset here; the reset cycle is driven by the meal
	// submission path.
	state := d.state.Get(conn.RoomID)
	state.Loser = &loser
	state.Winners = winners
	state.Scores = payload.Scores
	d.state.Set(conn.RoomID, state)
}

func (d *Dispatcher) handleUserDisjoined(conn *Connection, payload UserDisjoinedPayload) {
	if payload.Player == "" {
		d.manager.SendTo(conn, NewErrorNotification("missing 'player' in data"))
		return
	}

	d.manager.RemovePlayer(conn.RoomID, payload.Player)

	d.broadcast(conn.RoomID, MessageTypeUserDisjoined, UserDisjoinedNotification{
		Type:   MessageTypeUserDisjoined,
		Player: payload.Player,
	})
	d.broadcastPlayerList(conn.RoomID)

	state := d.state.Get(conn.RoomID)
	d.state.Set(conn.RoomID, state)
}

// pickLoser chooses uniformly at random among all players tied at the
// minimum score.
func pickLoser(scores map[string]int) string {
	min := 0
	first := true
	for _, score := range scores {
		if first || score < min {
			min = score
			first = false
		}
	}

	var candidates []string
	for player, score := range scores {
		if score == min {
			candidates = append(candidates, player)
		}
	}
	return candidates[rand.IntN(len(candidates))]
}

func (d *Dispatcher) broadcastPlayerList(roomID uuid.UUID) {
	d.broadcast(roomID, MessageTypePlayerList, PlayerListNotification{
		Type:    MessageTypePlayerList,
		Players: d.manager.Players(roomID),
	})
}

func (d *Dispatcher) broadcast(roomID uuid.UUID, messageType MessageType, message interface{}) {
	d.manager.Broadcast(roomID, message)
	if d.publisher != nil {
		d.publisher.Publish(roomID, messageType, message)
	}
}
