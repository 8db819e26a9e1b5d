// FILE: lixenwraith/chessassist/internal/position/piece.go
// Package position converts chess positions between an 8x8 board grid,
// the FEN text encoding and algebraic square coordinates.
//
// A Piece is its FEN character. Color is derived from the character case
// and is never stored separately.
package position

import "unicode"

// Piece is a FEN piece symbol, uppercase for white and lowercase for black.
// NoPiece marks an empty square.
type Piece byte

const (
	NoPiece Piece = 0

	WhitePawn   Piece = 'P'
	WhiteKnight Piece = 'N'
	WhiteBishop Piece = 'B'
	WhiteRook   Piece = 'R'
	WhiteQueen  Piece = 'Q'
	WhiteKing   Piece = 'K'
	BlackPawn   Piece = 'p'
	BlackKnight Piece = 'n'
	BlackBishop Piece = 'b'
	BlackRook   Piece = 'r'
	BlackQueen  Piece = 'q'
	BlackKing   Piece = 'k'
)

// AllPieces lists the 12 piece symbols, white first.
var AllPieces = []Piece{
	WhitePawn, WhiteKnight, WhiteBishop, WhiteRook, WhiteQueen, WhiteKing,
	BlackPawn, BlackKnight, BlackBishop, BlackRook, BlackQueen, BlackKing,
}

var glyphs = map[Piece]string{
	WhitePawn: "♙", WhiteKnight: "♘", WhiteBishop: "♗", WhiteRook: "♖", WhiteQueen: "♕", WhiteKing: "♔",
	BlackPawn: "♟", BlackKnight: "♞", BlackBishop: "♝", BlackRook: "♜", BlackQueen: "♛", BlackKing: "♚",
}

// ParsePiece returns the piece for a FEN symbol.
func ParsePiece(ch byte) (Piece, bool) {
	p := Piece(ch)
	return p, p.Valid()
}

// Valid reports whether p is one of the 12 piece symbols.
func (p Piece) Valid() bool {
	_, ok := glyphs[p]
	return ok
}

// Color returns the side owning the piece, NoColor for an empty or unknown symbol.
func (p Piece) Color() Color {
	if !p.Valid() {
		return NoColor
	}
	return ColorOf(p)
}

// Glyph returns the Unicode chess figurine for the piece.
func (p Piece) Glyph() string {
	return glyphs[p]
}

func (p Piece) String() string {
	if p == NoPiece {
		return ""
	}
	return string(rune(p))
}

// ColorOf derives the color from the symbol alone: white iff the symbol
// equals its own uppercase form.
func ColorOf(p Piece) Color {
	if rune(p) == unicode.ToUpper(rune(p)) {
		return White
	}
	return Black
}

// Color is the side to move or the owner of a piece.
type Color int

const (
	NoColor Color = iota
	White
	Black
)

// ParseColor accepts the FEN side-to-move letter or the color name.
func ParseColor(s string) (Color, bool) {
	switch s {
	case "w", "white":
		return White, true
	case "b", "black":
		return Black, true
	default:
		return NoColor, false
	}
}

// String returns the FEN side-to-move letter.
func (c Color) String() string {
	switch c {
	case White:
		return "w"
	case Black:
		return "b"
	default:
		return "-"
	}
}

func (c Color) Name() string {
	switch c {
	case White:
		return "white"
	case Black:
		return "black"
	default:
		return "none"
	}
}

func (c Color) Opposite() Color {
	switch c {
	case White:
		return Black
	case Black:
		return White
	default:
		return NoColor
	}
}
