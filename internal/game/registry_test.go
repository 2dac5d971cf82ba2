package game

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryIDsAreNeverReused(t *testing.T) {
	r := NewRegistry()
	a := r.Create("", uuid.Nil)
	b := r.Create("", uuid.Nil)
	assert.Equal(t, "Guest_1", a.DisplayName)
	assert.Equal(t, "Guest_2", b.DisplayName)
	assert.Greater(t, b.ID, a.ID)

	r.Remove(b.ID)
	c := r.Create("", uuid.Nil)
	assert.Greater(t, c.ID, b.ID)
	assert.Equal(t, 2, r.Len())

	_, ok := r.Get(b.ID)
	assert.False(t, ok)

	// removing twice is harmless
	r.Remove(b.ID)
	assert.Equal(t, 2, r.Len())
}

func TestRegistryConfirmedBookkeeping(t *testing.T) {
	r := NewRegistry()
	user := uuid.New()
	a := r.Create("alice", user)
	b := r.Create("", uuid.Nil)
	r.Create("", uuid.Nil)

	assert.Equal(t, "alice", a.DisplayName)
	assert.True(t, a.Verified())
	assert.False(t, b.Verified())

	a.SelectedCardID, a.IsConfirmed = 3, true
	b.SelectedCardID = 7
	assert.Equal(t, 1, r.CountConfirmed())

	b.IsConfirmed = true
	infos := r.Confirmed()
	require.Len(t, infos, 2)
	assert.Equal(t, a.ID, infos[0].SessionID)
	assert.Equal(t, 3, infos[0].CardID)
	assert.Equal(t, "alice", infos[0].Username)
	assert.Equal(t, b.ID, infos[1].SessionID)

	owner, ok := r.CardConfirmedBy(7)
	assert.True(t, ok)
	assert.Equal(t, b.ID, owner)
	_, ok = r.CardConfirmedBy(50)
	assert.False(t, ok)

	r.ResetSelections()
	assert.Equal(t, 0, r.CountConfirmed())
	assert.Equal(t, 0, a.SelectedCardID)
	assert.Empty(t, r.Confirmed())
}
