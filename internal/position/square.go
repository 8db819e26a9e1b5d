// FILE: lixenwraith/chessassist/internal/position/square.go
package position

import (
	"errors"
	"fmt"
)

// ErrInvalidSquare is returned for grid indices outside the board.
var ErrInvalidSquare = errors.New("invalid square")

// Square addresses one cell of the grid. Row 0 is rank 8, column 0 is file a.
type Square struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

func (s Square) Valid() bool {
	return s.Row >= 0 && s.Row < 8 && s.Col >= 0 && s.Col < 8
}

// String returns the algebraic name, or "-" for an off-board square.
func (s Square) String() string {
	name, err := ToAlgebraic(s.Row, s.Col)
	if err != nil {
		return "-"
	}
	return name
}

// ToCoords parses an algebraic coordinate such as "e4". The file letter is
// case-insensitive. ok is false for anything that is not exactly a file
// a-h followed by a rank 1-8.
func ToCoords(algebraic string) (sq Square, ok bool) {
	if len(algebraic) != 2 {
		return Square{}, false
	}
	file := algebraic[0]
	if file >= 'A' && file <= 'H' {
		file += 'a' - 'A'
	}
	rank := algebraic[1]
	if file < 'a' || file > 'h' || rank < '1' || rank > '8' {
		return Square{}, false
	}
	return Square{Row: 8 - int(rank-'0'), Col: int(file - 'a')}, true
}

// ToAlgebraic is the inverse of ToCoords.
func ToAlgebraic(row, col int) (string, error) {
	if row < 0 || row > 7 || col < 0 || col > 7 {
		return "", fmt.Errorf("%w: row %d, col %d", ErrInvalidSquare, row, col)
	}
	return string([]byte{byte('a' + col), byte('0' + 8 - row)}), nil
}

// MustSquare parses an algebraic coordinate and panics if it is invalid.
// Intended for constants and tests.
func MustSquare(algebraic string) Square {
	sq, ok := ToCoords(algebraic)
	if !ok {
		panic(fmt.Sprintf("position: invalid square %q", algebraic))
	}
	return sq
}
