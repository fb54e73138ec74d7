package gateway

import (
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// RoomState is the ephemeral per-room game state. It lives only in memory
// and is reconstructed from nothing after a restart; in-flight games do not
// survive the process.
type RoomState struct {
	GameStarted   bool
	GameEnded     bool
	GameID        string
	Players       []string
	Loser         *string
	Winners       []string
	MealSubmitted map[string]bool
	Scores        map[string]int
}

// NewRoomState returns the default-empty state a room has before any game
func NewRoomState() RoomState {
	return RoomState{
		MealSubmitted: make(map[string]bool),
		Scores:        make(map[string]int),
	}
}

// RosterProvider supplies the current connected roster of a room. The
// connection manager implements it.
type RosterProvider interface {
	Players(roomID uuid.UUID) []string
}

// RoomStateStore holds ephemeral game state and meal submission sets keyed
// by room ID. The player list inside a stored state is treated as a cache:
// Get always refreshes it from the roster provider.
type RoomStateStore struct {
	mu          sync.Mutex
	states      map[uuid.UUID]RoomState
	submissions map[uuid.UUID]map[string]bool
	roster      RosterProvider
}

// NewRoomStateStore creates an empty room state store
func NewRoomStateStore(roster RosterProvider) *RoomStateStore {
	return &RoomStateStore{
		states:      make(map[uuid.UUID]RoomState),
		submissions: make(map[uuid.UUID]map[string]bool),
		roster:      roster,
	}
}

// Get returns a copy of the room's state, default-empty if the room has
// none, with the player list freshly pulled from the roster provider.
func (s *RoomStateStore) Get(roomID uuid.UUID) RoomState {
	s.mu.Lock()
	state, ok := s.states[roomID]
	s.mu.Unlock()

	if !ok {
		state = NewRoomState()
	} else {
		state = copyState(state)
	}
	state.Players = s.roster.Players(roomID)
	return state
}

// Set fully replaces the room's state
func (s *RoomStateStore) Set(roomID uuid.UUID, state RoomState) {
	s.mu.Lock()
	s.states[roomID] = copyState(state)
	s.mu.Unlock()
	log.Debug().Str("room_id", roomID.String()).Msg("room state updated")
}

// Reset deletes the room's state, returning it to default-empty
func (s *RoomStateStore) Reset(roomID uuid.UUID) {
	s.mu.Lock()
	delete(s.states, roomID)
	s.mu.Unlock()
	log.Info().Str("room_id", roomID.String()).Msg("room state reset")
}

// MarkMealSubmitted adds a player to the room's submission set. Adding the
// same player twice is a no-op; duplicate user-visible submissions are
// rejected a layer up, against the durable record.
func (s *RoomStateStore) MarkMealSubmitted(roomID uuid.UUID, player string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.submissions[roomID] == nil {
		s.submissions[roomID] = make(map[string]bool)
	}
	s.submissions[roomID][player] = true
}

// AllSubmitted is true when the submission set covers every currently
// connected player. The denominator is the live roster, not the roster
// captured at game start: a mid-game disconnect shrinks it.
func (s *RoomStateStore) AllSubmitted(roomID uuid.UUID) bool {
	players := s.roster.Players(roomID)

	s.mu.Lock()
	defer s.mu.Unlock()
	return len(players) == len(s.submissions[roomID])
}

// ResetSubmissions clears the room's meal submission set
func (s *RoomStateStore) ResetSubmissions(roomID uuid.UUID) {
	s.mu.Lock()
	delete(s.submissions, roomID)
	s.mu.Unlock()
	log.Info().Str("room_id", roomID.String()).Msg("meal submissions reset")
}

func copyState(state RoomState) RoomState {
	out := state
	out.Players = append([]string(nil), state.Players...)
	out.Winners = append([]string(nil), state.Winners...)
	out.MealSubmitted = make(map[string]bool, len(state.MealSubmitted))
	for k, v := range state.MealSubmitted {
		out.MealSubmitted[k] = v
	}
	out.Scores = make(map[string]int, len(state.Scores))
	for k, v := range state.Scores {
		out.Scores[k] = v
	}
	return out
}
