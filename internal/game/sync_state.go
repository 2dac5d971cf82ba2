package game

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/bingo/internal/models"
)

// HallState is a read-only snapshot of the hall used by the HTTP API and tests.
type HallState struct {
	RoundID      uuid.UUID           `json:"roundId"`
	Phase        models.Phase        `json:"phase"`
	TimeLeft     int                 `json:"timeLeft"`
	DrawnNumbers []int               `json:"drawnNumbers"`
	Winner       *models.Winner      `json:"winner,omitempty"`
	Players      []models.PlayerInfo `json:"players"`
	Connected    int                 `json:"connected"`
	Pot          int64               `json:"pot"`
}

// State captures the current round. Confirmed players only are listed.
func (r *Round) State() HallState {
	return HallState{
		RoundID:      r.ID,
		Phase:        r.phase,
		TimeLeft:     r.timeLeft,
		DrawnNumbers: r.pool.Drawn(),
		Winner:       r.Winner(),
		Players:      r.registry.Confirmed(),
		Connected:    r.registry.Len(),
		Pot:          r.pot,
	}
}
