package game

import (
	"errors"
	"math/rand"
)

// MaxNumber is the highest number that can be called in a round.
const MaxNumber = 75

// ErrPoolExhausted is returned by Draw once every number has been called.
var ErrPoolExhausted = errors.New("all numbers have been called")

// NumberPool tracks which of the 75 numbers have been drawn this round.
// Not safe for concurrent use; the hall goroutine owns it.
type NumberPool struct {
	rng    *rand.Rand
	drawn  []int
	called [MaxNumber + 1]bool
}

// NewNumberPool returns an empty pool drawing from rng.
func NewNumberPool(rng *rand.Rand) *NumberPool {
	return &NumberPool{rng: rng, drawn: []int{}}
}

// Draw picks a number uniformly among those not yet drawn and records it.
func (p *NumberPool) Draw() (int, error) {
	remaining := MaxNumber - len(p.drawn)
	if remaining <= 0 {
		return 0, ErrPoolExhausted
	}
	// walk to the k-th uncalled number
	k := p.rng.Intn(remaining)
	for n := 1; n <= MaxNumber; n++ {
		if p.called[n] {
			continue
		}
		if k == 0 {
			p.mark(n)
			return n, nil
		}
		k--
	}
	return 0, ErrPoolExhausted
}

func (p *NumberPool) mark(n int) {
	p.called[n] = true
	p.drawn = append(p.drawn, n)
}

// Reset forgets every drawn number.
func (p *NumberPool) Reset() {
	p.drawn = []int{}
	p.called = [MaxNumber + 1]bool{}
}

// Drawn returns a copy of the drawn numbers in draw order.
func (p *NumberPool) Drawn() []int {
	out := make([]int, len(p.drawn))
	copy(out, p.drawn)
	return out
}

// Called reports whether n has been drawn this round.
func (p *NumberPool) Called(n int) bool {
	if n < 1 || n > MaxNumber {
		return false
	}
	return p.called[n]
}

// Len is the number of drawn numbers.
func (p *NumberPool) Len() int { return len(p.drawn) }

// Exhausted reports whether every number has been drawn.
func (p *NumberPool) Exhausted() bool { return len(p.drawn) >= MaxNumber }

// LetterFor maps a number to its column letter.
func LetterFor(n int) string {
	switch {
	case n >= 1 && n <= 15:
		return "B"
	case n >= 16 && n <= 30:
		return "I"
	case n >= 31 && n <= 45:
		return "N"
	case n >= 46 && n <= 60:
		return "G"
	case n >= 61 && n <= 75:
		return "O"
	}
	return ""
}
