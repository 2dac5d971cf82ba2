package models

// Phase is one of the three mutually exclusive stages of a round.
type Phase string

const (
	PhaseSelection Phase = "selection"
	PhaseGame      Phase = "game"
	PhaseWinner    Phase = "winner"
)

// Winner is the record shown while the hall is in the winner phase.
type Winner struct {
	Username string `json:"username"`
	CardID   int    `json:"cardId"`
}
