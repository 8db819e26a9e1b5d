// FILE: lixenwraith/chessassist/internal/position/board.go
package position

import (
	"fmt"
	"strings"
)

const (
	EmptyFEN    = "8/8/8/8/8/8/8/8 w KQkq - 0 1"
	StandardFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
)

// Board is the 8x8 grid indexed [row][col]. It is a value type: copies are
// independent and two boards compare equal with ==.
type Board [8][8]Piece

// EmptyBoard returns a board with all 64 squares empty.
func EmptyBoard() Board {
	return Board{}
}

// StandardBoard returns the standard starting position.
func StandardBoard() Board {
	var b Board
	back := []Piece{'r', 'n', 'b', 'q', 'k', 'b', 'n', 'r'}
	for col := 0; col < 8; col++ {
		b[0][col] = back[col]
		b[1][col] = BlackPawn
		b[6][col] = WhitePawn
		b[7][col] = toWhite(back[col])
	}
	return b
}

func toWhite(p Piece) Piece {
	if p >= 'a' && p <= 'z' {
		return p - ('a' - 'A')
	}
	return p
}

// At returns the piece on sq, NoPiece for an empty or off-board square.
func (b Board) At(sq Square) Piece {
	if !sq.Valid() {
		return NoPiece
	}
	return b[sq.Row][sq.Col]
}

// Set places p on sq, replacing whatever was there.
func (b *Board) Set(sq Square, p Piece) error {
	if !sq.Valid() {
		return fmt.Errorf("%w: row %d, col %d", ErrInvalidSquare, sq.Row, sq.Col)
	}
	if p != NoPiece && !p.Valid() {
		return fmt.Errorf("invalid piece %q", byte(p))
	}
	b[sq.Row][sq.Col] = p
	return nil
}

func (b *Board) Remove(sq Square) error {
	return b.Set(sq, NoPiece)
}

// Move carries the content of from onto to, emptying from. Moving a square
// onto itself leaves the board unchanged. No chess rules are applied.
func (b *Board) Move(from, to Square) error {
	if !from.Valid() {
		return fmt.Errorf("%w: from row %d, col %d", ErrInvalidSquare, from.Row, from.Col)
	}
	if !to.Valid() {
		return fmt.Errorf("%w: to row %d, col %d", ErrInvalidSquare, to.Row, to.Col)
	}
	if from == to {
		return nil
	}
	b[to.Row][to.Col] = b[from.Row][from.Col]
	b[from.Row][from.Col] = NoPiece
	return nil
}

// Pieces counts occupied squares.
func (b Board) Pieces() int {
	n := 0
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			if b[r][c] != NoPiece {
				n++
			}
		}
	}
	return n
}

// ASCII renders the board with rank and file labels, '.' for empty squares.
func (b Board) ASCII() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")

	for r := 0; r < 8; r++ {
		sb.WriteString(fmt.Sprintf("%d ", 8-r))
		for c := 0; c < 8; c++ {
			if p := b[r][c]; p == NoPiece {
				sb.WriteString(". ")
			} else {
				sb.WriteString(fmt.Sprintf("%c ", p))
			}
		}
		sb.WriteString(fmt.Sprintf(" %d\n", 8-r))
	}
	sb.WriteString("  a b c d e f g h")

	return sb.String()
}
