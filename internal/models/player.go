package models

import "github.com/google/uuid"

// PlayerSession is the per-connection state of one player in the hall.
// It is owned by the hall goroutine and must not be touched from elsewhere.
type PlayerSession struct {
	ID          int64     `json:"id"`
	DisplayName string    `json:"displayName"`
	UserID      uuid.UUID `json:"userId,omitempty"`

	// SelectedCardID is 0 when no card is selected.
	SelectedCardID int  `json:"selectedCardId,omitempty"`
	IsConfirmed    bool `json:"isConfirmed"`

	// PendingCharge is set while a wallet debit for this session's confirmation is in flight.
	PendingCharge bool `json:"-"`

	// Charged records whether the confirmation for the current round was paid for.
	Charged bool `json:"-"`
}

// Verified reports whether the session belongs to an identity-verified user.
func (p *PlayerSession) Verified() bool {
	return p.UserID != uuid.Nil
}

// PlayerInfo is the public view of a confirmed player.
type PlayerInfo struct {
	SessionID int64  `json:"sessionId"`
	Username  string `json:"username"`
	CardID    int    `json:"cardId"`
}
