// FILE: lixenwraith/chessassist/internal/client/commands/analysis.go
package commands

import (
	"fmt"
	"strconv"
	"time"

	"chessassist/internal/client/display"
)

const analysisWaitLimit = 5 // long-polls before giving up on a pending analysis

func (r *Registry) registerAnalysisCommands() {
	r.Register(&Command{
		Name:        "analyse",
		ShortName:   "a",
		Description: "Ask for the best moves in the current position",
		Usage:       "analyse",
		Handler:     analyseHandler,
	})

	r.Register(&Command{
		Name:        "history",
		ShortName:   "y",
		Description: "List past analyses of the session (server storage required)",
		Usage:       "history [limit]",
		Handler:     historyHandler,
	})
}

// analyseHandler submits the position and long-polls until the result lands
func analyseHandler(s Session, args []string) error {
	id, err := requireSession(s)
	if err != nil {
		return err
	}
	c := s.GetClient()

	resp, err := c.Analyse(id)
	if err != nil {
		return err
	}
	s.SetState(resp)
	fmt.Printf("%sAnalysing...%s\n", display.Yellow, display.Reset)

	for i := 0; i < analysisWaitLimit && resp.Analysis.State == "pending"; i++ {
		if resp, err = c.WaitSession(id, resp.Revision, resp.Analysis.State); err != nil {
			return err
		}
		s.SetState(resp)
	}

	if resp.Analysis.State == "pending" {
		fmt.Printf("%sStill pending; use 'poll' to wait further%s\n", display.Yellow, display.Reset)
		return nil
	}
	printSession(resp)
	return nil
}

func historyHandler(s Session, args []string) error {
	id, err := requireSession(s)
	if err != nil {
		return err
	}

	limit := 10
	if len(args) > 0 {
		if limit, err = strconv.Atoi(args[0]); err != nil || limit < 1 {
			return fmt.Errorf("limit must be a positive number")
		}
	}

	entries, err := s.GetClient().AnalysisHistory(id, limit)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Printf("%sNo analyses recorded%s\n", display.Yellow, display.Reset)
		return nil
	}

	for _, e := range entries {
		status := display.Green + "applied" + display.Reset
		if !e.Applied {
			status = display.Yellow + "stale" + display.Reset
		}
		fmt.Printf("\n%s%s%s  %s  %s  %v\n", display.Cyan, e.CreatedAt.Local().Format("2006-01-02 15:04:05"), display.Reset,
			e.Provider, status, time.Duration(e.ElapsedMs)*time.Millisecond)
		fmt.Printf("  %s\n", e.FEN)
		if e.Error != "" {
			fmt.Printf("  %serror: %s%s\n", display.Red, e.Error, display.Reset)
			continue
		}
		for i, sg := range e.Suggestions {
			fmt.Printf("  %d. %-6s %s\n", i+1, sg.Move, display.FormatScore(sg.Score))
		}
	}
	return nil
}
