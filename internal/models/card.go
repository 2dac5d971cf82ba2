package models

// CardSize is the width and height of a bingo card.
const CardSize = 5

// FreeCell marks the free centre square of a card layout.
const FreeCell = 0

// Card is a fixed 5x5 bingo layout. Grid is indexed [row][col]; column c holds
// numbers from 15c+1 to 15c+15.
type Card struct {
	ID   int                     `json:"id"`
	Grid [CardSize][CardSize]int `json:"grid"`
}
