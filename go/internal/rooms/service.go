package rooms

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/mcdev12/lunchwheel/go/internal/models"
)

// RoomsApp defines what the service layer needs from the rooms application
type RoomsApp interface {
	CreateRoom(ctx context.Context, req CreateRoomRequest) (*models.Room, error)
	GetRoom(ctx context.Context, id uuid.UUID) (*models.Room, error)
	ListJoinableRooms(ctx context.Context) ([]models.Room, error)
	SetActive(ctx context.Context, id uuid.UUID, active bool) (*models.Room, error)
}

// Service exposes the rooms HTTP API
type Service struct {
	app RoomsApp
}

// NewService creates a new rooms HTTP service
func NewService(app RoomsApp) *Service {
	return &Service{
		app: app,
	}
}

type setActivePayload struct {
	IsActive bool `json:"is_active"`
}

// HandleCreateRoom handles POST /v1/rooms/create_room
func (s *Service) HandleCreateRoom(w http.ResponseWriter, r *http.Request) {
	var req CreateRoomRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	room, err := s.app.CreateRoom(r.Context(), req)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, room)
}

// HandleGetRoom handles GET /v1/rooms/get_room/{id}
func (s *Service) HandleGetRoom(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid room id format", http.StatusBadRequest)
		return
	}

	room, err := s.app.GetRoom(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, room)
}

// HandleGetIsActive handles GET /v1/rooms/get_is_active/{id}
func (s *Service) HandleGetIsActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid room id format", http.StatusBadRequest)
		return
	}

	room, err := s.app.GetRoom(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, room.IsActive)
}

// HandleGetRooms handles GET /v1/rooms/get_rooms
func (s *Service) HandleGetRooms(w http.ResponseWriter, r *http.Request) {
	list, err := s.app.ListJoinableRooms(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	if list == nil {
		list = []models.Room{}
	}
	writeJSON(w, list)
}

// HandleSetActive handles PATCH /v1/rooms/set_active/{id}
func (s *Service) HandleSetActive(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		http.Error(w, "invalid room id format", http.StatusBadRequest)
		return
	}

	var payload setActivePayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	room, err := s.app.SetActive(r.Context(), id, payload.IsActive)
	if err != nil {
		writeAppError(w, err)
		return
	}
	writeJSON(w, room)
}

// RegisterRoutes registers the rooms HTTP routes
func (s *Service) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/rooms/create_room", s.HandleCreateRoom)
	mux.HandleFunc("GET /v1/rooms/get_rooms", s.HandleGetRooms)
	mux.HandleFunc("GET /v1/rooms/get_room/{id}", s.HandleGetRoom)
	mux.HandleFunc("GET /v1/rooms/get_is_active/{id}", s.HandleGetIsActive)
	mux.HandleFunc("PATCH /v1/rooms/set_active/{id}", s.HandleSetActive)
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func writeAppError(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrRoomNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	log.Error().Err(err).Msg("rooms request failed")
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
