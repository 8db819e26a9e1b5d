// FILE: lixenwraith/chessassist/cmd/chessassist-client/main.go
// Package main implements an interactive client for the position editor API.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"chessassist/internal/client/api"
	"chessassist/internal/client/commands"
	"chessassist/internal/client/display"
	"chessassist/internal/client/session"

	"github.com/chzyer/readline"
)

func main() {
	apiURL := flag.String("api", defaultAPIBase, "API server base URL")
	flag.Parse()

	for run(*apiURL) {
	}
}

// run drives one REPL session and reports whether to start another
func run(apiURL string) bool {
	s := &session.Session{
		APIBaseURL: apiURL,
		Client:     api.New(apiURL),
		Verbose:    false,
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          display.Prompt("chessassist"),
		HistoryFile:     ".chessassist_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("%s%s%s\n", display.Red, err.Error(), display.Reset)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Printf("%sChess Position Editor Client%s\n", display.Cyan, display.Reset)
	fmt.Printf("%sAPI: %s%s\n", display.Cyan, s.APIBaseURL, display.Reset)
	fmt.Printf("Type 'help' for commands\n\n")

	registry := commands.NewRegistry(s)

	for {
		rl.SetPrompt(buildPrompt(s))

		line, err := rl.Readline()
		if err == io.EOF {
			return handleExit()
		}
		if err != nil {
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if line == "exit" || line == "quit" || line == "x" {
			return handleExit()
		}

		// Trailing -v prints full request and response bodies for one command
		if strings.HasSuffix(line, " -v") {
			s.Verbose = true
			line = strings.TrimSuffix(line, " -v")
		} else {
			s.Verbose = false
		}

		registry.Execute(line)
	}
}

func buildPrompt(s *session.Session) string {
	parts := []string{}

	if s.Username != "" {
		parts = append(parts, fmt.Sprintf("%s%s%s", display.Magenta, s.Username, display.Reset))
	}
	if s.Username != "" && s.CurrentSession != "" {
		parts = append(parts, fmt.Sprintf("%s - %s", display.Yellow, display.Reset))
	}
	if s.CurrentSession != "" {
		id := s.CurrentSession
		if len(id) > 8 {
			id = id[:8]
		}
		parts = append(parts, fmt.Sprintf("%s%s%s", display.White, id, display.Reset))
	}

	promptStr := "chessassist"
	if len(parts) > 0 {
		promptStr += display.Yellow + " [" + display.Reset + strings.Join(parts, "") + display.Yellow + "]"
	}

	if s.State != nil {
		side := display.Blue + "White" + display.Reset
		if s.State.Turn == "b" {
			side = display.Red + "Black" + display.Reset
		}
		promptStr += fmt.Sprintf(" - Turn:%s r%d", side, s.State.Revision)
		if s.State.Analysis.State == "pending" {
			promptStr += display.Yellow + " (analysing)" + display.Reset
		}
	}

	return display.Prompt(promptStr)
}
