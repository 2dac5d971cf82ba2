package game

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumberPoolDrawsEveryNumberOnce(t *testing.T) {
	p := NewNumberPool(rand.New(rand.NewSource(7)))

	seen := make(map[int]bool)
	for i := 0; i < MaxNumber; i++ {
		n, err := p.Draw()
		require.NoError(t, err)
		require.GreaterOrEqual(t, n, 1)
		require.LessOrEqual(t, n, MaxNumber)
		require.False(t, seen[n], "number %d drawn twice", n)
		seen[n] = true
		assert.True(t, p.Called(n))
	}
	assert.True(t, p.Exhausted())
	assert.Len(t, p.Drawn(), MaxNumber)

	_, err := p.Draw()
	assert.ErrorIs(t, err, ErrPoolExhausted)
	assert.Len(t, p.Drawn(), MaxNumber, "failed draw must not grow the list")
}

func TestNumberPoolKeepsDrawOrderAndResets(t *testing.T) {
	p := NewNumberPool(rand.New(rand.NewSource(1)))
	var order []int
	for i := 0; i < 10; i++ {
		n, err := p.Draw()
		require.NoError(t, err)
		order = append(order, n)
	}
	assert.Equal(t, order, p.Drawn())

	// Drawn hands out a copy
	d := p.Drawn()
	d[0] = 999
	assert.Equal(t, order[0], p.Drawn()[0])

	p.Reset()
	assert.Empty(t, p.Drawn())
	assert.Equal(t, 0, p.Len())
	assert.False(t, p.Called(order[0]))
	assert.False(t, p.Called(0))
	assert.False(t, p.Called(76))
}

func TestLetterFor(t *testing.T) {
	cases := map[int]string{
		1: "B", 15: "B",
		16: "I", 30: "I",
		31: "N", 45: "N",
		46: "G", 60: "G",
		61: "O", 75: "O",
		0: "", 76: "",
	}
	for n, want := range cases {
		assert.Equal(t, want, LetterFor(n), "number %d", n)
	}
}
