// FILE: lixenwraith/chessassist/cmd/chessassist-client/exit_wasm.go
//go:build js && wasm

package main

import (
	"chessassist/internal/client/display"
)

// The browser terminal has nowhere to exit to, so the REPL starts over.
func handleExit() (restart bool) {
	display.Println(display.Cyan, "Goodbye!")

	display.Println(display.Yellow, "\n━━━━━━━━━━━━━━━━━━━━━━━━")
	display.Println(display.Yellow, "Editor session ended.")
	display.Println(display.Yellow, "Restarting the client.")
	display.Println(display.Yellow, "━━━━━━━━━━━━━━━━━━━━━━━━\n")

	return true
}
