package models

import "github.com/google/uuid"

// Identity is what the identity collaborator hands to the hall for a connection.
// A zero Identity is a guest.
type Identity struct {
	UserID   uuid.UUID `json:"userId"`
	Username string    `json:"username"`
}

// IsGuest reports whether no verified user is attached.
func (i Identity) IsGuest() bool {
	return i.UserID == uuid.Nil
}
