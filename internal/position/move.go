// FILE: lixenwraith/chessassist/internal/position/move.go
package position

import "strings"

// MoveSquares is the pair of squares a coordinate move touches.
type MoveSquares struct {
	From Square `json:"from"`
	To   Square `json:"to"`
}

// ParseMove reads coordinate notation, "e2e4" or "e7e8q" with a trailing
// promotion letter. Other notations such as "O-O" or "Nf3" are not parsed
// and report ok == false.
func ParseMove(notation string) (m MoveSquares, ok bool) {
	notation = strings.TrimSpace(notation)
	if len(notation) != 4 && len(notation) != 5 {
		return MoveSquares{}, false
	}
	if len(notation) == 5 && !strings.ContainsRune("qrbnQRBN", rune(notation[4])) {
		return MoveSquares{}, false
	}

	from, ok := ToCoords(notation[0:2])
	if !ok {
		return MoveSquares{}, false
	}
	to, ok := ToCoords(notation[2:4])
	if !ok {
		return MoveSquares{}, false
	}
	return MoveSquares{From: from, To: to}, true
}
