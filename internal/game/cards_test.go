package game

import (
	"testing"

	"github.com/jason-s-yu/bingo/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeckLayouts(t *testing.T) {
	d := NewDeck(DefaultCardCount, 1)
	require.Equal(t, DefaultCardCount, d.Len())

	for id := 1; id <= d.Len(); id++ {
		c, ok := d.Card(id)
		require.True(t, ok)
		assert.Equal(t, id, c.ID)
		assert.Equal(t, models.FreeCell, c.Grid[2][2], "card %d centre", id)

		seen := make(map[int]bool)
		for row := 0; row < models.CardSize; row++ {
			for col := 0; col < models.CardSize; col++ {
				if row == 2 && col == 2 {
					continue
				}
				n := c.Grid[row][col]
				assert.GreaterOrEqual(t, n, col*15+1, "card %d col %d", id, col)
				assert.LessOrEqual(t, n, col*15+15, "card %d col %d", id, col)
				assert.False(t, seen[n], "card %d repeats %d", id, n)
				seen[n] = true
			}
		}
	}

	_, ok := d.Card(0)
	assert.False(t, ok)
	_, ok = d.Card(DefaultCardCount + 1)
	assert.False(t, ok)
}

func TestDeckIsDeterministicPerSeed(t *testing.T) {
	a, _ := NewDeck(10, 42).Card(3)
	b, _ := NewDeck(10, 42).Card(3)
	c, _ := NewDeck(10, 43).Card(3)
	assert.Equal(t, a, b)
	assert.NotEqual(t, a.Grid, c.Grid)
}

func calledSet(nums ...int) func(int) bool {
	set := make(map[int]bool)
	for _, n := range nums {
		set[n] = true
	}
	return func(n int) bool { return set[n] }
}

func TestHasBingo(t *testing.T) {
	card, _ := NewDeck(1, 5).Card(1)
	g := card.Grid

	assert.False(t, HasBingo(card, calledSet()))

	t.Run("row", func(t *testing.T) {
		assert.True(t, HasBingo(card, calledSet(g[0][0], g[0][1], g[0][2], g[0][3], g[0][4])))
	})
	t.Run("column", func(t *testing.T) {
		assert.True(t, HasBingo(card, calledSet(g[0][4], g[1][4], g[2][4], g[3][4], g[4][4])))
	})
	t.Run("middle row uses free cell", func(t *testing.T) {
		assert.True(t, HasBingo(card, calledSet(g[2][0], g[2][1], g[2][3], g[2][4])))
	})
	t.Run("diagonal", func(t *testing.T) {
		assert.True(t, HasBingo(card, calledSet(g[0][0], g[1][1], g[3][3], g[4][4])))
	})
	t.Run("anti diagonal", func(t *testing.T) {
		assert.True(t, HasBingo(card, calledSet(g[0][4], g[1][3], g[3][1], g[4][0])))
	})
	t.Run("four of a row is not enough", func(t *testing.T) {
		assert.False(t, HasBingo(card, calledSet(g[0][0], g[0][1], g[0][2], g[0][3], g[1][4])))
	})
}
