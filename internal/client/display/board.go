// FILE: lixenwraith/chessassist/internal/client/display/board.go
package display

import (
	"fmt"
	"io"
	"strings"

	"chessassist/internal/server/core"
)

// RenderBoard renders the server's ASCII board with colored pieces
func RenderBoard(w io.Writer, asciiBoard string) {
	lines := strings.Split(asciiBoard, "\n")

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}

		isFileLine := (i == 0) || (i == len(lines)-1)

		for _, char := range line {
			switch {
			case char >= 'a' && char <= 'h' && isFileLine:
				fmt.Fprintf(w, "%s%c%s", Cyan, char, Reset)
			case char >= 'A' && char <= 'Z':
				fmt.Fprintf(w, "%s%c%s", Blue, char, Reset)
			case char >= 'a' && char <= 'z':
				fmt.Fprintf(w, "%s%c%s", Red, char, Reset)
			case char >= '1' && char <= '8':
				fmt.Fprintf(w, "%s%c%s", Cyan, char, Reset)
			default:
				fmt.Fprintf(w, "%c", char)
			}
		}
		fmt.Fprintln(w)
	}
}

// RenderGrid draws a board grid, marking suggested moves: origin squares in
// green brackets, destinations with the suggestion number.
func RenderGrid(w io.Writer, grid core.Grid, highlights []core.Highlight) {
	from := make(map[[2]int]bool)
	to := make(map[[2]int]int)
	for _, h := range highlights {
		key := [2]int{h.Row, h.Col}
		switch h.Type {
		case "move-from":
			from[key] = true
		case "move-to":
			if _, seen := to[key]; !seen {
				to[key] = h.Number
			}
		}
	}

	fmt.Fprintf(w, "%s    a  b  c  d  e  f  g  h%s\n", Cyan, Reset)
	for r := 0; r < 8; r++ {
		fmt.Fprintf(w, "%s%d %s", Cyan, 8-r, Reset)
		for c := 0; c < 8; c++ {
			cell := pieceCell(grid[r][c])
			key := [2]int{r, c}
			switch {
			case to[key] > 0:
				fmt.Fprintf(w, "%s%d%s%s", Yellow, to[key], cell, Reset)
			case from[key]:
				fmt.Fprintf(w, "%s[%s%s]%s", Green, cell, Green, Reset)
			default:
				fmt.Fprintf(w, " %s ", cell)
			}
		}
		fmt.Fprintf(w, "%s %d%s\n", Cyan, 8-r, Reset)
	}
	fmt.Fprintf(w, "%s    a  b  c  d  e  f  g  h%s\n", Cyan, Reset)
}

func pieceCell(symbol string) string {
	switch {
	case symbol == "":
		return "."
	case strings.ToUpper(symbol) == symbol:
		return Blue + symbol + Reset
	default:
		return Red + symbol + Reset
	}
}

// ColorForTurn returns colored turn indicator
func ColorForTurn(turn string) string {
	if turn == "w" {
		return Blue + "White" + Reset
	}
	return Red + "Black" + Reset
}
