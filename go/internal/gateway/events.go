package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/mcdev12/lunchwheel/go/internal/models"
)

// MessageType tags every message crossing a room websocket, inbound and
// outbound, so a receiver can dispatch without out-of-band context.
type MessageType string

const (
	// Inbound
	MessageTypeJoin          MessageType = "JOIN"
	MessageTypeRejoin        MessageType = "REJOIN"
	MessageTypeStartGame     MessageType = "START_GAME"
	MessageTypeSubmitMeal    MessageType = "SUBMIT_MEAL"
	MessageTypeSpin          MessageType = "SPIN"
	MessageTypeEndGame       MessageType = "END_GAME"
	MessageTypeUserDisjoined MessageType = "USER_DISJOINED"

	// Outbound
	MessageTypePlayerList        MessageType = "PLAYER_LIST"
	MessageTypePlayerJoined      MessageType = "PLAYER_JOINED"
	MessageTypeGameStarted       MessageType = "GAME_STARTED"
	MessageTypeMealSubmitted     MessageType = "MEAL_SUBMITTED"
	MessageTypeAllMealsSubmitted MessageType = "ALL_MEALS_SUBMITTED"
	MessageTypeGameEnded         MessageType = "GAME_ENDED"
	MessageTypeGameReset         MessageType = "GAME_RESET"
	MessageTypeGameState         MessageType = "GAME_STATE"
	MessageTypeSpined            MessageType = "SPINED"
	MessageTypeError             MessageType = "ERROR"
)

// InboundEnvelope is the minimal frame decoded from every client message.
// The type tag selects the payload struct the raw bytes decode into.
type InboundEnvelope struct {
	Type MessageType `json:"type"`
}

// JoinPayload joins a player to a room
type JoinPayload struct {
	Player string `json:"player"`
}

// RejoinPayload re-attaches a returning player to a room
type RejoinPayload struct {
	Player string `json:"player"`
}

// StartGamePayload starts a new game with the given roster
type StartGamePayload struct {
	Players []string `json:"players"`
}

// SubmitMealPayload records one player's meal cost for the running game
type SubmitMealPayload struct {
	Player string            `json:"player"`
	GameID string            `json:"game_id"`
	Meal   *models.MealPrice `json:"meal"`
}

// SpinPayload draws a random score for a player
type SpinPayload struct {
	Player string `json:"player"`
}

// EndGamePayload resolves the game from the accumulated scores
type EndGamePayload struct {
	GameID string         `json:"game_id"`
	Scores map[string]int `json:"scores"`
}

// UserDisjoinedPayload is the voluntary-leave path
type UserDisjoinedPayload struct {
	Player string `json:"player"`
}

// ParsePayload decodes the raw inbound frame into the payload struct for its
// type tag. Unknown types return an error so the caller can report them
// without closing the connection.
func ParsePayload(msgType MessageType, raw []byte) (interface{}, error) {
	switch msgType {
	case MessageTypeJoin:
		var payload JoinPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case MessageTypeRejoin:
		var payload RejoinPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case MessageTypeStartGame:
		var payload StartGamePayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case MessageTypeSubmitMeal:
		var payload SubmitMealPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case MessageTypeSpin:
		var payload SpinPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case MessageTypeEndGame:
		var payload EndGamePayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	case MessageTypeUserDisjoined:
		var payload UserDisjoinedPayload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, err
		}
		return payload, nil

	default:
		return nil, fmt.Errorf("invalid message type: %s", msgType)
	}
}

// PlayerListNotification carries the current join-ordered roster of a room
type PlayerListNotification struct {
	Type    MessageType `json:"type"`
	Players []string    `json:"players"`
}

// PlayerJoinedNotification announces a single player joining
type PlayerJoinedNotification struct {
	Type   MessageType `json:"type"`
	Player string      `json:"player"`
}

// GameStartedNotification announces a freshly created game
type GameStartedNotification struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
	GameID  string      `json:"game_id"`
}

// MealSubmittedNotification announces one player's submission
type MealSubmittedNotification struct {
	Type    MessageType      `json:"type"`
	Message string           `json:"message"`
	Player  string           `json:"player"`
	Meal    models.MealPrice `json:"meal"`
}

// AllMealsSubmittedNotification announces meal collection completion
type AllMealsSubmittedNotification struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// GameEndedNotification announces the game outcome
type GameEndedNotification struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
	Loser   string      `json:"loser"`
	Winners []string    `json:"winners"`
}

// GameResetNotification announces that the room returned to idle
type GameResetNotification struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// GameStateNotification is the full room snapshot sent to a rejoining connection
type GameStateNotification struct {
	Type          MessageType     `json:"type"`
	GameStarted   bool            `json:"gameStarted"`
	GameEnded     bool            `json:"gameEnded"`
	GameID        string          `json:"gameId"`
	Players       []string        `json:"players"`
	Loser         *string         `json:"loser"`
	Winners       []string        `json:"winners"`
	MealSubmitted map[string]bool `json:"mealSubmitted"`
	Scores        map[string]int  `json:"scores"`
}

// SpinNotification announces a player's random score draw
type SpinNotification struct {
	Type   MessageType `json:"type"`
	Player string      `json:"player"`
	Score  int         `json:"score"`
}

// UserDisjoinedNotification announces a player leaving or disconnecting
type UserDisjoinedNotification struct {
	Type   MessageType `json:"type"`
	Player string      `json:"player"`
}

// ErrorNotification is sent to the originating connection only
type ErrorNotification struct {
	Type    MessageType `json:"type"`
	Message string      `json:"message"`
}

// NewErrorNotification wraps an error message for the sender
func NewErrorNotification(message string) ErrorNotification {
	return ErrorNotification{Type: MessageTypeError, Message: message}
}
