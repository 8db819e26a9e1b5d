// FILE: lixenwraith/chessassist/internal/server/analysis/analysis.go
// Package analysis requests ranked move suggestions for a position from an
// external collaborator: a chat-completions language model or a UCI engine.
package analysis

import (
	"context"
	"errors"
	"strings"

	"chessassist/internal/server/core"
)

// DefaultCount is the number of suggestions requested per position.
const DefaultCount = 3

var (
	ErrUnavailable       = errors.New("analysis collaborator unavailable")
	ErrMalformedResponse = errors.New("malformed analysis response")
	ErrInvalidPosition   = errors.New("position cannot be sent to the collaborator")
)

// Analyst returns up to n ranked suggestions for the position in fen.
// Fewer than n, including none, is a valid outcome.
type Analyst interface {
	Analyse(ctx context.Context, fen string, n int) ([]core.Suggestion, error)
}

// Normalize drops empty moves, trims notation and keeps at most n entries.
func Normalize(suggestions []core.Suggestion, n int) []core.Suggestion {
	out := make([]core.Suggestion, 0, len(suggestions))
	for _, s := range suggestions {
		s.Move = strings.TrimSpace(s.Move)
		if s.Move == "" {
			continue
		}
		out = append(out, s)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}
