// FILE: lixenwraith/chessassist/internal/server/editor/highlight.go
package editor

import (
	"chessassist/internal/position"
	"chessassist/internal/server/core"
)

const (
	HighlightFrom = "move-from"
	HighlightTo   = "move-to"
)

// Highlights maps suggested moves to board squares. Only coordinate
// notation is understood; other notations contribute nothing.
func Highlights(suggestions []core.Suggestion) []core.Highlight {
	var out []core.Highlight
	for i, s := range suggestions {
		m, ok := position.ParseMove(s.Move)
		if !ok {
			continue
		}
		out = append(out,
			core.Highlight{Square: m.From.String(), Row: m.From.Row, Col: m.From.Col, Type: HighlightFrom},
			core.Highlight{Square: m.To.String(), Row: m.To.Row, Col: m.To.Col, Type: HighlightTo, Number: i + 1},
		)
	}
	return out
}
