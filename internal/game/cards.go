package game

import (
	"math/rand"

	"github.com/jason-s-yu/bingo/internal/models"
)

// DefaultCardCount is the number of cards a hall offers.
const DefaultCardCount = 99

// Deck is the shared, immutable set of card layouts a hall offers.
type Deck struct {
	cards []models.Card
}

// NewDeck builds count cards deterministically from seed, so every process
// started with the same seed serves the same layouts.
func NewDeck(count int, seed int64) *Deck {
	d := &Deck{cards: make([]models.Card, count)}
	for i := 0; i < count; i++ {
		id := i + 1
		d.cards[i] = generateCard(id, rand.New(rand.NewSource(seed+int64(id)*7919)))
	}
	return d
}

func generateCard(id int, r *rand.Rand) models.Card {
	c := models.Card{ID: id}
	for col := 0; col < models.CardSize; col++ {
		base := col*15 + 1
		picks := r.Perm(15)[:models.CardSize]
		for row := 0; row < models.CardSize; row++ {
			c.Grid[row][col] = base + picks[row]
		}
	}
	c.Grid[2][2] = models.FreeCell
	return c
}

// Card returns the layout for id.
func (d *Deck) Card(id int) (models.Card, bool) {
	if id < 1 || id > len(d.cards) {
		return models.Card{}, false
	}
	return d.cards[id-1], true
}

// Len is the number of cards in the deck.
func (d *Deck) Len() int { return len(d.cards) }

// HasBingo reports whether card has a complete row, column or diagonal given the
// called predicate. The free cell always counts as marked.
func HasBingo(card models.Card, called func(int) bool) bool {
	var marked [models.CardSize][models.CardSize]bool
	for r := 0; r < models.CardSize; r++ {
		for c := 0; c < models.CardSize; c++ {
			n := card.Grid[r][c]
			marked[r][c] = n == models.FreeCell || called(n)
		}
	}

	diag, anti := true, true
	for i := 0; i < models.CardSize; i++ {
		row, col := true, true
		for j := 0; j < models.CardSize; j++ {
			row = row && marked[i][j]
			col = col && marked[j][i]
		}
		if row || col {
			return true
		}
		diag = diag && marked[i][i]
		anti = anti && marked[i][models.CardSize-1-i]
	}
	return diag || anti
}
