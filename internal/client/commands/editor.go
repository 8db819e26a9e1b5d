// FILE: lixenwraith/chessassist/internal/client/commands/editor.go
package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"chessassist/internal/client/api"
	"chessassist/internal/client/display"
)

func (r *Registry) registerEditorCommands() {
	r.Register(&Command{
		Name:        "new",
		ShortName:   "n",
		Description: "Create an editing session",
		Usage:       "new [fen...]  (empty for the standard position, 'empty' for a bare board)",
		Handler:     newSessionHandler,
	})

	r.Register(&Command{
		Name:        "join",
		ShortName:   "j",
		Description: "Switch to an existing session",
		Usage:       "join <sessionId>",
		Handler:     joinSessionHandler,
	})

	r.Register(&Command{
		Name:        "show",
		ShortName:   "h",
		Description: "Show board and analysis",
		Usage:       "show",
		Handler:     showHandler,
	})

	r.Register(&Command{
		Name:        "state",
		ShortName:   "s",
		Description: "Show raw session JSON",
		Usage:       "state",
		Handler:     stateHandler,
	})

	r.Register(&Command{
		Name:        "place",
		ShortName:   "p",
		Description: "Put a piece on a square",
		Usage:       "place <piece> <square>  (e.g. place Q d1)",
		Handler:     placeHandler,
	})

	r.Register(&Command{
		Name:        "erase",
		ShortName:   "e",
		Description: "Empty a square",
		Usage:       "erase <square>",
		Handler:     eraseHandler,
	})

	r.Register(&Command{
		Name:        "select",
		Description: "Select a palette piece for clicks",
		Usage:       "select <piece|empty|none>",
		Handler:     selectHandler,
	})

	r.Register(&Command{
		Name:        "click",
		ShortName:   "k",
		Description: "Click a square with the selected piece",
		Usage:       "click <square>",
		Handler:     clickHandler,
	})

	r.Register(&Command{
		Name:        "drag",
		ShortName:   "m",
		Description: "Drag a piece to another square",
		Usage:       "drag <from> <to>  or  drag <from><to>",
		Handler:     dragHandler,
	})

	r.Register(&Command{
		Name:        "wipe",
		ShortName:   "w",
		Description: "Clear the board",
		Usage:       "wipe",
		Handler:     wipeHandler,
	})

	r.Register(&Command{
		Name:        "reset",
		Description: "Restore the starting position",
		Usage:       "reset",
		Handler:     resetHandler,
	})

	r.Register(&Command{
		Name:        "fen",
		ShortName:   "f",
		Description: "Show or load a FEN",
		Usage:       "fen [fen...]",
		Handler:     fenHandler,
	})

	r.Register(&Command{
		Name:        "turn",
		ShortName:   "t",
		Description: "Set the side to move",
		Usage:       "turn <w|b>",
		Handler:     turnHandler,
	})

	r.Register(&Command{
		Name:        "delete",
		ShortName:   "d",
		Description: "Delete a session",
		Usage:       "delete [sessionId]",
		Handler:     deleteHandler,
	})

	r.Register(&Command{
		Name:        "poll",
		ShortName:   "g",
		Description: "Long-poll for session changes",
		Usage:       "poll",
		Handler:     pollHandler,
	})

	r.Register(&Command{
		Name:        "decode",
		Description: "Decode FEN without a session",
		Usage:       "decode <fen...>",
		Handler:     decodeHandler,
	})

	r.Register(&Command{
		Name:        "coords",
		Description: "Convert a square name to row and column",
		Usage:       "coords <square>",
		Handler:     coordsHandler,
	})
}

func requireSession(s Session) (string, error) {
	id := s.GetCurrentSession()
	if id == "" {
		return "", fmt.Errorf("no session selected: use 'new' or 'join'")
	}
	return id, nil
}

var outWriter io.Writer = os.Stdout

// apply stores a session reply and prints it
func apply(s Session, resp *api.SessionResponse, err error) error {
	if err != nil {
		return err
	}
	s.SetState(resp)
	printSession(resp)
	return nil
}

func printSession(st *api.SessionResponse) {
	fmt.Println()
	display.RenderGrid(outWriter, st.Board, st.Analysis.Highlights)
	fmt.Printf("\n%sFEN:%s %s\n", display.Cyan, display.Reset, st.FEN)
	fmt.Printf("%sTurn:%s %s  %sRevision:%s %d", display.Cyan, display.Reset, display.ColorForTurn(st.Turn),
		display.Cyan, display.Reset, st.Revision)
	if st.Selected != "" {
		fmt.Printf("  %sSelected:%s %s", display.Cyan, display.Reset, st.Selected)
	}
	fmt.Println()
	printAnalysis(st.Analysis)
}

func printAnalysis(a api.AnalysisInfo) {
	switch a.State {
	case "pending":
		fmt.Printf("%sAnalysis pending...%s\n", display.Yellow, display.Reset)
	case "failed":
		fmt.Printf("%sAnalysis failed: %s%s\n", display.Red, a.Error, display.Reset)
	case "ready":
		if len(a.Suggestions) == 0 {
			fmt.Printf("%sNo suggestions for this position%s\n", display.Yellow, display.Reset)
			return
		}
		fmt.Printf("%sSuggestions:%s\n", display.Cyan, display.Reset)
		for i, sg := range a.Suggestions {
			fmt.Printf("  %d. %-6s %s\n", i+1, sg.Move, display.FormatScore(sg.Score))
		}
	}
}

func newSessionHandler(s Session, args []string) error {
	fen := strings.Join(args, " ")
	if fen == "empty" {
		fen = "8/8/8/8/8/8/8/8 w - - 0 1"
	}
	resp, err := s.GetClient().CreateSession(fen)
	if err != nil {
		return err
	}
	fmt.Printf("%sSession created: %s%s\n", display.Green, resp.SessionID, display.Reset)
	return apply(s, resp, nil)
}

func joinSessionHandler(s Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: join <sessionId>")
	}
	resp, err := s.GetClient().GetSession(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%sJoined session: %s%s\n", display.Green, resp.SessionID, display.Reset)
	return apply(s, resp, nil)
}

func showHandler(s Session, args []string) error {
	id, err := requireSession(s)
	if err != nil {
		return err
	}
	resp, err := s.GetClient().GetSession(id)
	return apply(s, resp, err)
}

func stateHandler(s Session, args []string) error {
	id, err := requireSession(s)
	if err != nil {
		return err
	}
	resp, err := s.GetClient().GetSession(id)
	if err != nil {
		return err
	}
	s.SetState(resp)
	display.PrettyPrintJSON(resp)
	return nil
}

func placeHandler(s Session, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: place <piece> <square>")
	}
	id, err := requireSession(s)
	if err != nil {
		return err
	}
	resp, err := s.GetClient().PlacePiece(id, args[1], args[0])
	return apply(s, resp, err)
}

func eraseHandler(s Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: erase <square>")
	}
	id, err := requireSession(s)
	if err != nil {
		return err
	}
	resp, err := s.GetClient().ErasePiece(id, args[0])
	return apply(s, resp, err)
}

func selectHandler(s Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: select <piece|empty|none>")
	}
	id, err := requireSession(s)
	if err != nil {
		return err
	}
	resp, err := s.GetClient().SelectPiece(id, args[0])
	if err != nil {
		return err
	}
	s.SetState(resp)
	switch resp.Selected {
	case "":
		fmt.Printf("%sSelection cleared%s\n", display.Green, display.Reset)
	case "empty":
		fmt.Printf("%sEraser selected%s\n", display.Green, display.Reset)
	default:
		fmt.Printf("%sSelected: %s%s\n", display.Green, resp.Selected, display.Reset)
	}
	return nil
}

func clickHandler(s Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: click <square>")
	}
	id, err := requireSession(s)
	if err != nil {
		return err
	}
	resp, err := s.GetClient().ClickSquare(id, args[0])
	return apply(s, resp, err)
}

// dragHandler accepts "e2 e4" or the joined "e2e4"
func dragHandler(s Session, args []string) error {
	var from, to string
	switch {
	case len(args) == 2:
		from, to = args[0], args[1]
	case len(args) == 1 && len(args[0]) == 4:
		from, to = args[0][:2], args[0][2:]
	default:
		return fmt.Errorf("usage: drag <from> <to>")
	}
	id, err := requireSession(s)
	if err != nil {
		return err
	}
	resp, err := s.GetClient().DragPiece(id, from, to)
	return apply(s, resp, err)
}

func wipeHandler(s Session, args []string) error {
	id, err := requireSession(s)
	if err != nil {
		return err
	}
	resp, err := s.GetClient().ClearBoard(id)
	return apply(s, resp, err)
}

func resetHandler(s Session, args []string) error {
	id, err := requireSession(s)
	if err != nil {
		return err
	}
	resp, err := s.GetClient().ResetBoard(id)
	return apply(s, resp, err)
}

func fenHandler(s Session, args []string) error {
	id, err := requireSession(s)
	if err != nil {
		return err
	}
	if len(args) == 0 {
		resp, err := s.GetClient().GetBoard(id)
		if err != nil {
			return err
		}
		fmt.Println()
		display.RenderBoard(outWriter, resp.Board)
		fmt.Printf("\n%s\n", resp.FEN)
		return nil
	}
	resp, err := s.GetClient().LoadFEN(id, strings.Join(args, " "))
	return apply(s, resp, err)
}

func turnHandler(s Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: turn <w|b>")
	}
	id, err := requireSession(s)
	if err != nil {
		return err
	}
	resp, err := s.GetClient().SetTurn(id, strings.ToLower(args[0]))
	return apply(s, resp, err)
}

func deleteHandler(s Session, args []string) error {
	id := s.GetCurrentSession()
	if len(args) > 0 {
		id = args[0]
	}
	if id == "" {
		return fmt.Errorf("usage: delete [sessionId]")
	}
	if err := s.GetClient().DeleteSession(id); err != nil {
		return err
	}
	if id == s.GetCurrentSession() {
		s.SetCurrentSession("")
	}
	fmt.Printf("%sSession deleted: %s%s\n", display.Green, id, display.Reset)
	return nil
}

// pollHandler waits for the next change to the session in focus
func pollHandler(s Session, args []string) error {
	id, err := requireSession(s)
	if err != nil {
		return err
	}
	revision, state := -1, ""
	if st := s.GetState(); st != nil {
		revision, state = st.Revision, st.Analysis.State
	}
	fmt.Printf("%sWaiting for changes (revision %d)...%s\n", display.Yellow, revision, display.Reset)
	resp, err := s.GetClient().WaitSession(id, revision, state)
	return apply(s, resp, err)
}

func decodeHandler(s Session, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: decode <fen...>")
	}
	resp, err := s.GetClient().Decode(strings.Join(args, " "))
	if err != nil {
		return err
	}
	fmt.Println()
	display.RenderGrid(outWriter, resp.Board, nil)
	f := resp.Fields
	fmt.Printf("\n%sPlacement:%s %s\n", display.Cyan, display.Reset, resp.Placement)
	fmt.Printf("%sFields:%s turn=%s castling=%s en-passant=%s halfmove=%d fullmove=%d\n",
		display.Cyan, display.Reset, f.ActiveColor, f.Castling, f.EnPassant, f.HalfMove, f.FullMove)
	return nil
}

func coordsHandler(s Session, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: coords <square>")
	}
	resp, err := s.GetClient().Coords(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("%s%s%s -> row %d, col %d\n", display.Cyan, resp.Square, display.Reset, resp.Row, resp.Col)
	return nil
}
