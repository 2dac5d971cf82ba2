package models

import "github.com/google/uuid"

// RoundAction is one entry of a round's history, consumed by the historian.
type RoundAction struct {
	RoundID       uuid.UUID              `json:"round_id"`
	ActionIndex   int                    `json:"action_index"`
	SessionID     int64                  `json:"session_id"`
	ActorUserID   uuid.UUID              `json:"actor_user_id"`
	ActionType    string                 `json:"action_type"`
	ActionPayload map[string]interface{} `json:"action_payload"`
	Timestamp     int64                  `json:"timestamp"`
}
