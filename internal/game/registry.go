package game

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/jason-s-yu/bingo/internal/models"
)

// Registry maps session ids to player sessions. Ids are handed out from a
// counter and never reused. Not safe for concurrent use; the hall goroutine owns it.
type Registry struct {
	nextID   int64
	sessions map[int64]*models.PlayerSession
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[int64]*models.PlayerSession),
	}
}

// Create registers a fresh session. Guests get a generated name.
func (r *Registry) Create(name string, userID uuid.UUID) *models.PlayerSession {
	r.nextID++
	if name == "" {
		name = fmt.Sprintf("Guest_%d", r.nextID)
	}
	s := &models.PlayerSession{
		ID:          r.nextID,
		DisplayName: name,
		UserID:      userID,
	}
	r.sessions[s.ID] = s
	return s
}

// Get looks up a live session.
func (r *Registry) Get(id int64) (*models.PlayerSession, bool) {
	s, ok := r.sessions[id]
	return s, ok
}

// Remove deletes a session unconditionally.
func (r *Registry) Remove(id int64) {
	delete(r.sessions, id)
}

// Len is the number of live sessions.
func (r *Registry) Len() int { return len(r.sessions) }

// CountConfirmed returns how many sessions have locked in a card.
func (r *Registry) CountConfirmed() int {
	n := 0
	for _, s := range r.sessions {
		if s.IsConfirmed {
			n++
		}
	}
	return n
}

// Confirmed lists confirmed players ordered by session id.
func (r *Registry) Confirmed() []models.PlayerInfo {
	out := []models.PlayerInfo{}
	for _, s := range r.sessions {
		if s.IsConfirmed {
			out = append(out, models.PlayerInfo{
				SessionID: s.ID,
				Username:  s.DisplayName,
				CardID:    s.SelectedCardID,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

// CardConfirmedBy returns the session that confirmed cardID, if any.
func (r *Registry) CardConfirmedBy(cardID int) (int64, bool) {
	for _, s := range r.sessions {
		if s.IsConfirmed && s.SelectedCardID == cardID {
			return s.ID, true
		}
	}
	return 0, false
}

// ResetSelections clears every session's card choice for a new round.
func (r *Registry) ResetSelections() {
	for _, s := range r.sessions {
		s.SelectedCardID = 0
		s.IsConfirmed = false
		s.Charged = false
	}
}
