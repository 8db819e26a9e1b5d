// FILE: lixenwraith/chessassist/internal/server/processor/convert.go
package processor

import (
	"fmt"
	"strings"

	"chessassist/internal/position"
	"chessassist/internal/server/core"
	"chessassist/internal/server/editor"
)

func parseSquare(s string) (position.Square, error) {
	sq, ok := position.ToCoords(strings.TrimSpace(s))
	if !ok {
		return position.Square{}, fmt.Errorf("%w: %q", position.ErrInvalidSquare, s)
	}
	return sq, nil
}

func parsePiece(s string) (position.Piece, error) {
	if len(s) != 1 {
		return position.NoPiece, fmt.Errorf("%w: %q", editor.ErrInvalidPiece, s)
	}
	p, ok := position.ParsePiece(s[0])
	if !ok {
		return position.NoPiece, fmt.Errorf("%w: %q", editor.ErrInvalidPiece, s)
	}
	return p, nil
}

func gridFromBoard(b position.Board) core.Grid {
	var g core.Grid
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			g[r][c] = b[r][c].String()
		}
	}
	return g
}

// boardFromGrid accepts "" or " " for empty squares and single piece
// symbols otherwise
func boardFromGrid(g core.Grid) (position.Board, error) {
	var b position.Board
	for r := 0; r < 8; r++ {
		for c := 0; c < 8; c++ {
			cell := strings.TrimSpace(g[r][c])
			if cell == "" {
				continue
			}
			p, err := parsePiece(cell)
			if err != nil {
				name, _ := position.ToAlgebraic(r, c)
				return position.Board{}, fmt.Errorf("%w at %s", err, name)
			}
			b[r][c] = p
		}
	}
	return b, nil
}

func payloadFromFields(f position.Fields) core.FieldsPayload {
	return core.FieldsPayload{
		ActiveColor: f.ActiveColor.String(),
		Castling:    f.Castling,
		EnPassant:   f.EnPassant,
		HalfMove:    f.HalfMove,
		FullMove:    f.FullMove,
	}
}

// fieldsFromPayload validates the trailing fields by decoding them against
// an empty placement; unset values take their defaults
func fieldsFromPayload(fp core.FieldsPayload) (position.Fields, error) {
	var f position.Fields
	if fp.ActiveColor != "" {
		c, ok := position.ParseColor(fp.ActiveColor)
		if !ok {
			return f, fmt.Errorf("%w: side to move %q", position.ErrMalformedEncoding, fp.ActiveColor)
		}
		f.ActiveColor = c
	}
	f.Castling = fp.Castling
	f.EnPassant = fp.EnPassant
	f.HalfMove = fp.HalfMove
	f.FullMove = fp.FullMove
	f = f.WithDefaults()

	_, checked, err := position.DecodeFull("8/8/8/8/8/8/8/8 " + f.String())
	if err != nil {
		return position.Fields{}, err
	}
	return checked, nil
}
