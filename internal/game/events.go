package game

import (
	"bytes"
	"encoding/json"
	"strconv"

	"github.com/jason-s-yu/bingo/internal/models"
)

// GameEventType is an enum-like type for events sent to clients.
type GameEventType string

const (
	EventInit             GameEventType = "init"
	EventPhaseChange      GameEventType = "phase_change"
	EventTimerUpdate      GameEventType = "timer_update"
	EventNumberCalled     GameEventType = "number_called"
	EventAllNumbersCalled GameEventType = "all_numbers_called"

	// sent only to the session concerned
	EventCardConfirmed  GameEventType = "card_confirmed"
	EventActionRejected GameEventType = "action_rejected"
	EventPong           GameEventType = "pong"
)

// GameEvent is the single wire shape for everything the hall sends to clients.
// Fields that do not apply to a given type are omitted.
type GameEvent struct {
	Type GameEventType `json:"type"`

	SessionID int64          `json:"sessionId,omitempty"`
	Phase     models.Phase   `json:"phase,omitempty"`
	TimeLeft  *int           `json:"timeLeft,omitempty"` // pointer so zero is still sent
	Winner    *models.Winner `json:"winner,omitempty"`

	Number       int    `json:"number,omitempty"`
	Letter       string `json:"letter,omitempty"`
	DrawnNumbers []int  `json:"drawnNumbers,omitempty"`

	Players []models.PlayerInfo `json:"players,omitempty"`
	CardID  int                 `json:"cardId,omitempty"`

	// Action and Reason explain an action_rejected event.
	Action ClientMessageType `json:"action,omitempty"`
	Reason string            `json:"reason,omitempty"`
}

func intPtr(v int) *int { return &v }

// ClientMessageType names an inbound client intent.
type ClientMessageType string

const (
	MsgSetUsername ClientMessageType = "set_username"
	MsgSelectCard  ClientMessageType = "select_card"
	MsgConfirmCard ClientMessageType = "confirm_card"
	MsgClaimBingo  ClientMessageType = "claim_bingo"
	MsgPing        ClientMessageType = "ping"
)

// ClientMessage is an inbound message from a connection.
type ClientMessage struct {
	Type     ClientMessageType `json:"type"`
	Username string            `json:"username,omitempty"`
	CardID   CardRef           `json:"cardId,omitempty"`

	// IsValid is the client's own opinion of its claim. It is accepted on the wire
	// but never trusted; claims are verified against the card layout.
	IsValid bool `json:"isValid,omitempty"`
}

// CardRef is a card id that clients may send either as a number or a numeric string.
type CardRef int

// UnmarshalJSON accepts 7, "7" and null.
func (c *CardRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = 0
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return err
		}
		*c = CardRef(v)
		return nil
	}
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = CardRef(v)
	return nil
}

// ParseClientMessage decodes a raw text frame.
func ParseClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, err
	}
	return msg, nil
}
