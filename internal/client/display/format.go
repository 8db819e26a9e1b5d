// FILE: lixenwraith/chessassist/internal/client/display/format.go
package display

import (
	"encoding/json"
	"fmt"
)

// PrettyPrintJSON prints formatted JSON
func PrettyPrintJSON(v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Printf("%sError formatting JSON: %s%s\n", Red, err.Error(), Reset)
		return
	}
	fmt.Println(string(data))
}

// FormatScore renders a pawn evaluation with an explicit sign
func FormatScore(score float64) string {
	if score > 0 {
		return fmt.Sprintf("+%.2f", score)
	}
	return fmt.Sprintf("%.2f", score)
}
