package websocket

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/tictactoe-match/internal/entity"
)

const (
	ActionConnect = "connect"
	ActionMove    = "match:move"
	ActionRematch = "match:rematch"
	ActionSync    = "match:sync"
	ActionError   = "error"
)

// Message is the envelope of every frame in both directions. Events travel with their kind as the action.
type Message struct {
	Action  string          `json:"action"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type Payload struct {
	Player *entity.Player `json:"player,omitempty"`
	Match  *entity.Match  `json:"match,omitempty"`
	X      *int           `json:"x,omitempty"`
	Y      *int           `json:"y,omitempty"`
	Error  string         `json:"error,omitempty"`
}

func newMessage(action string, payload any) (Message, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Message{}, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return Message{Action: action, Payload: raw}, nil
}

// IsEvent reports whether the action carries a match event.
func IsEvent(action string) bool {
	switch action {
	case entity.EventGameStarted, entity.EventMoveApplied, entity.EventTurnChanged, entity.EventScoreChanged,
		entity.EventGameWon, entity.EventGameTied, entity.EventRematched:
		return true
	default:
		return false
	}
}
