package processor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"chessassist/internal/position"
	"chessassist/internal/server/analysis"
	"chessassist/internal/server/core"
	"chessassist/internal/server/service"

	"github.com/google/go-cmp/cmp"
)

// fakeAnalyst returns canned suggestions, optionally blocking until released.
type fakeAnalyst struct {
	mu          sync.Mutex
	suggestions []core.Suggestion
	err         error
	release     chan struct{}
	fens        []string
}

func (f *fakeAnalyst) Analyse(ctx context.Context, fen string, n int) ([]core.Suggestion, error) {
	f.mu.Lock()
	f.fens = append(f.fens, fen)
	release := f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.suggestions, f.err
}

func newTestProcessor(t *testing.T, a analysis.Analyst) (*Processor, *service.Service) {
	t.Helper()
	svc := service.New(nil, nil)
	queue := NewAnalysisQueue(func() (analysis.Analyst, error) { return a, nil }, QueueConfig{Workers: 1, Timeout: time.Second})
	p := New(svc, queue, "fake")
	t.Cleanup(func() {
		p.Close()
		svc.Shutdown(time.Second)
	})
	return p, svc
}

func createSession(t *testing.T, p *Processor, fen string) core.SessionResponse {
	t.Helper()
	resp := p.Execute(NewCreateSessionCommand(core.CreateSessionRequest{FEN: fen}))
	if !resp.Success {
		t.Fatalf("create session: %+v", resp.Error)
	}
	return resp.Data.(core.SessionResponse)
}

func mustSucceed(t *testing.T, resp ProcessorResponse) core.SessionResponse {
	t.Helper()
	if !resp.Success {
		t.Fatalf("command failed: %+v", resp.Error)
	}
	return resp.Data.(core.SessionResponse)
}

func TestEditingCommands(t *testing.T) {
	p, _ := newTestProcessor(t, &fakeAnalyst{})
	id := createSession(t, p, position.EmptyFEN).SessionID

	mustSucceed(t, p.Execute(NewPlacePieceCommand(id, "e1", core.PlaceRequest{Piece: "K"})))
	mustSucceed(t, p.Execute(NewSelectPieceCommand(id, core.SelectRequest{Piece: "k"})))
	mustSucceed(t, p.Execute(NewClickSquareCommand(id, core.ClickRequest{Square: "e8"})))
	mustSucceed(t, p.Execute(NewPlacePieceCommand(id, "d2", core.PlaceRequest{Piece: "Q"})))
	mustSucceed(t, p.Execute(NewMovePieceCommand(id, core.DragRequest{From: "d2", To: "h5"})))
	got := mustSucceed(t, p.Execute(NewSetActiveColorCommand(id, core.TurnRequest{Color: "black"})))

	if want := "4k3/8/8/7Q/8/8/8/4K3 b KQkq - 0 1"; got.FEN != want {
		t.Errorf("FEN = %q; want %q", got.FEN, want)
	}
	if got.Turn != "b" || got.Selected != "k" {
		t.Errorf("turn %q selected %q", got.Turn, got.Selected)
	}
	if got.Board[3][7] != "Q" || got.Board[0][4] != "k" {
		t.Errorf("grid h5=%q e8=%q", got.Board[3][7], got.Board[0][4])
	}

	mustSucceed(t, p.Execute(NewSelectPieceCommand(id, core.SelectRequest{Piece: "empty"})))
	got = mustSucceed(t, p.Execute(NewClickSquareCommand(id, core.ClickRequest{Square: "h5"})))
	if got.Board[3][7] != "" || got.Selected != "empty" {
		t.Errorf("after erase click h5=%q selected=%q", got.Board[3][7], got.Selected)
	}

	got = mustSucceed(t, p.Execute(NewClearBoardCommand(id)))
	if got.FEN != "8/8/8/8/8/8/8/8 b - - 0 1" {
		t.Errorf("after clear FEN = %q", got.FEN)
	}
	got = mustSucceed(t, p.Execute(NewResetBoardCommand(id)))
	if got.FEN != position.StandardFEN {
		t.Errorf("after reset FEN = %q", got.FEN)
	}
	got = mustSucceed(t, p.Execute(NewErasePieceCommand(id, "a1")))
	if got.Board[7][0] != "" {
		t.Errorf("a1 = %q after erase", got.Board[7][0])
	}
}

func TestErrorCodes(t *testing.T) {
	p, _ := newTestProcessor(t, &fakeAnalyst{})
	id := createSession(t, p, "").SessionID

	tests := []struct {
		name string
		cmd  Command
		code string
	}{
		{"unknown session", NewGetSessionCommand("missing"), core.ErrSessionNotFound},
		{"off-board square", NewPlacePieceCommand(id, "i9", core.PlaceRequest{Piece: "K"}), core.ErrInvalidSquare},
		{"bad piece", NewPlacePieceCommand(id, "e4", core.PlaceRequest{Piece: "x"}), core.ErrInvalidPiece},
		{"bad drag", NewMovePieceCommand(id, core.DragRequest{From: "e2", To: "e9"}), core.ErrInvalidSquare},
		{"malformed load", NewLoadFENCommand(id, core.LoadFENRequest{FEN: "rnbqkbnr/pppppppp/8/8"}), core.ErrMalformedEncoding},
		{"malformed create", NewCreateSessionCommand(core.CreateSessionRequest{FEN: "9/8/8/8/8/8/8/8"}), core.ErrMalformedEncoding},
		{"malformed decode", NewDecodeCommand(core.DecodeRequest{FEN: "8/8/8/8/8/8/8/7X w - - 0 1"}), core.ErrMalformedEncoding},
		{"empty selection", NewSelectPieceCommand(id, core.SelectRequest{Piece: ""}), core.ErrInvalidPiece},
		{"bad coords", NewCoordsCommand("z1"), core.ErrInvalidSquare},
		{"wrong args", Command{Type: CmdPlacePiece, SessionID: id, Square: "e4"}, core.ErrInvalidRequest},
		{"unknown command", Command{Type: CommandType(999)}, core.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := p.Execute(tt.cmd)
			if resp.Success {
				t.Fatalf("command succeeded: %+v", resp.Data)
			}
			if resp.Error.Code != tt.code {
				t.Errorf("code = %s; want %s (%s)", resp.Error.Code, tt.code, resp.Error.Error)
			}
		})
	}

	// Failed commands leave the board alone
	got := mustSucceed(t, p.Execute(NewGetSessionCommand(id)))
	if got.FEN != position.StandardFEN || got.Revision != 0 {
		t.Errorf("session changed by failed commands: %q rev %d", got.FEN, got.Revision)
	}
}

func TestOwnership(t *testing.T) {
	p, _ := newTestProcessor(t, &fakeAnalyst{})

	cmd := NewCreateSessionCommand(core.CreateSessionRequest{})
	cmd.UserID = "u1"
	resp := p.Execute(cmd)
	id := resp.Data.(core.SessionResponse).SessionID

	get := NewGetSessionCommand(id)
	get.UserID = "u2"
	if resp := p.Execute(get); resp.Success || resp.Error.Code != core.ErrUnauthorized {
		t.Errorf("other user access = %+v", resp)
	}
	get.UserID = "u1"
	mustSucceed(t, p.Execute(get))
}

func TestCodecCommands(t *testing.T) {
	p, _ := newTestProcessor(t, &fakeAnalyst{})

	resp := p.Execute(NewDecodeCommand(core.DecodeRequest{FEN: "4k3/8/8/8/8/8/8/4K3"}))
	if !resp.Success {
		t.Fatalf("decode: %+v", resp.Error)
	}
	dec := resp.Data.(core.DecodeResponse)
	wantFields := core.FieldsPayload{ActiveColor: "w", Castling: "KQkq", EnPassant: "-", HalfMove: 0, FullMove: 1}
	if diff := cmp.Diff(wantFields, dec.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
	if dec.Placement != "4k3/8/8/8/8/8/8/4K3" || dec.Board[0][4] != "k" || dec.Board[7][4] != "K" {
		t.Errorf("decode = %+v", dec)
	}

	resp = p.Execute(NewEncodeCommand(core.EncodeRequest{
		Board:  dec.Board,
		Fields: core.FieldsPayload{ActiveColor: "b", Castling: "-", FullMove: 42},
	}))
	if !resp.Success {
		t.Fatalf("encode: %+v", resp.Error)
	}
	if got := resp.Data.(core.EncodeResponse).FEN; got != "4k3/8/8/8/8/8/8/4K3 b - - 0 42" {
		t.Errorf("encode = %q", got)
	}

	resp = p.Execute(NewEncodeCommand(core.EncodeRequest{Fields: core.FieldsPayload{EnPassant: "e4"}}))
	if resp.Success || resp.Error.Code != core.ErrMalformedEncoding {
		t.Errorf("encode with bad en-passant = %+v", resp)
	}

	var grid core.Grid
	grid[2][2] = "Z"
	resp = p.Execute(NewEncodeCommand(core.EncodeRequest{Board: grid}))
	if resp.Success || resp.Error.Code != core.ErrInvalidPiece {
		t.Errorf("encode with bad piece = %+v", resp)
	}

	resp = p.Execute(NewCoordsCommand("C7"))
	if diff := cmp.Diff(core.CoordsResponse{Square: "c7", Row: 1, Col: 2}, resp.Data); diff != "" {
		t.Errorf("coords mismatch (-want +got):\n%s", diff)
	}
}

func waitForState(t *testing.T, p *Processor, id, state string) core.SessionResponse {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		got := mustSucceed(t, p.Execute(NewGetSessionCommand(id)))
		if got.Analysis.State == state {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("analysis state = %q; want %q", got.Analysis.State, state)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestAnalyse(t *testing.T) {
	fake := &fakeAnalyst{
		suggestions: []core.Suggestion{{Move: "e2e4", Score: 0.3}, {Move: "Nf3", Score: 0.2}, {Move: "d2d4", Score: 0.2}},
		release:     make(chan struct{}),
	}
	p, _ := newTestProcessor(t, fake)
	id := createSession(t, p, "").SessionID

	resp := p.Execute(NewAnalyseCommand(id))
	if !resp.Success || !resp.Pending {
		t.Fatalf("analyse = %+v", resp)
	}
	if got := resp.Data.(core.SessionResponse).Analysis.State; got != "pending" {
		t.Errorf("state = %q; want pending", got)
	}

	if resp := p.Execute(NewAnalyseCommand(id)); resp.Success || resp.Error.Code != core.ErrAnalysisInProgress {
		t.Errorf("second analyse = %+v", resp)
	}

	close(fake.release)
	got := waitForState(t, p, id, "ready")

	if diff := cmp.Diff(fake.suggestions, got.Analysis.Suggestions); diff != "" {
		t.Errorf("suggestions mismatch (-want +got):\n%s", diff)
	}
	wantHighlights := []core.Highlight{
		{Square: "e2", Row: 6, Col: 4, Type: "move-from"},
		{Square: "e4", Row: 4, Col: 4, Type: "move-to", Number: 1},
		{Square: "d2", Row: 6, Col: 3, Type: "move-from"},
		{Square: "d4", Row: 4, Col: 3, Type: "move-to", Number: 3},
	}
	if diff := cmp.Diff(wantHighlights, got.Analysis.Highlights); diff != "" {
		t.Errorf("highlights mismatch (-want +got):\n%s", diff)
	}

	// Any board change invalidates the result
	got = mustSucceed(t, p.Execute(NewErasePieceCommand(id, "e2")))
	if got.Analysis.State != "idle" || len(got.Analysis.Suggestions) != 0 || len(got.Analysis.Highlights) != 0 {
		t.Errorf("analysis survived a board change: %+v", got.Analysis)
	}
}

func TestAnalyseStaleResultDropped(t *testing.T) {
	fake := &fakeAnalyst{
		suggestions: []core.Suggestion{{Move: "e2e4"}},
		release:     make(chan struct{}),
	}
	p, _ := newTestProcessor(t, fake)
	id := createSession(t, p, "").SessionID

	mustSucceed(t, p.Execute(NewAnalyseCommand(id)))
	mustSucceed(t, p.Execute(NewSetActiveColorCommand(id, core.TurnRequest{Color: "b"})))
	close(fake.release)

	// Give the worker time to deliver
	time.Sleep(50 * time.Millisecond)
	got := mustSucceed(t, p.Execute(NewGetSessionCommand(id)))
	if got.Analysis.State != "idle" || len(got.Analysis.Suggestions) != 0 {
		t.Errorf("stale result applied: %+v", got.Analysis)
	}
}

func TestAnalyseFailure(t *testing.T) {
	fake := &fakeAnalyst{err: errors.New("upstream down")}
	p, _ := newTestProcessor(t, fake)
	created := createSession(t, p, "")

	mustSucceed(t, p.Execute(NewAnalyseCommand(created.SessionID)))
	got := waitForState(t, p, created.SessionID, "failed")

	if got.Analysis.Error != "upstream down" {
		t.Errorf("error = %q", got.Analysis.Error)
	}
	if got.FEN != created.FEN || got.Revision != created.Revision {
		t.Errorf("board changed after failed analysis: %q rev %d", got.FEN, got.Revision)
	}
}

func TestAnalyseNoSuggestions(t *testing.T) {
	p, _ := newTestProcessor(t, &fakeAnalyst{})
	id := createSession(t, p, "8/8/8/8/8/8/8/8 w - - 0 1").SessionID

	mustSucceed(t, p.Execute(NewAnalyseCommand(id)))
	got := waitForState(t, p, id, "ready")
	if len(got.Analysis.Suggestions) != 0 || got.Analysis.Highlights != nil {
		t.Errorf("analysis = %+v; want ready with nothing", got.Analysis)
	}
}

func TestQueueFactoryFailure(t *testing.T) {
	svc := service.New(nil, nil)
	defer svc.Shutdown(time.Second)
	queue := NewAnalysisQueue(func() (analysis.Analyst, error) {
		return nil, errors.New("no engine binary")
	}, QueueConfig{Workers: 1, Timeout: time.Second})
	p := New(svc, queue, "engine")
	defer p.Close()

	id := createSession(t, p, "").SessionID
	mustSucceed(t, p.Execute(NewAnalyseCommand(id)))
	got := waitForState(t, p, id, "failed")
	if !strings.Contains(got.Analysis.Error, "no engine binary") {
		t.Errorf("error = %q", got.Analysis.Error)
	}
}

func TestQueueShutdown(t *testing.T) {
	q := NewAnalysisQueue(func() (analysis.Analyst, error) { return &fakeAnalyst{}, nil }, QueueConfig{})
	if err := q.Shutdown(time.Second); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := q.SubmitAsync("s", 0, position.StandardFEN, func(AnalysisResult) {}); !errors.Is(err, ErrQueueShutdown) {
		t.Errorf("submit after shutdown error = %v; want ErrQueueShutdown", err)
	}
}

// deadAnalyst behaves like an engine whose process exited.
type deadAnalyst struct {
	closed bool
}

func (d *deadAnalyst) Analyse(ctx context.Context, fen string, n int) ([]core.Suggestion, error) {
	return nil, fmt.Errorf("%w: engine closed unexpectedly", analysis.ErrUnavailable)
}

func (d *deadAnalyst) Close() error {
	d.closed = true
	return nil
}

func TestQueueReplacesUnavailableAnalyst(t *testing.T) {
	var mu sync.Mutex
	var built []*deadAnalyst
	q := NewAnalysisQueue(func() (analysis.Analyst, error) {
		mu.Lock()
		defer mu.Unlock()
		a := &deadAnalyst{}
		built = append(built, a)
		return a, nil
	}, QueueConfig{Workers: 1, Timeout: time.Second})
	defer q.Shutdown(time.Second)

	for i := 0; i < 3; i++ {
		results := make(chan AnalysisResult, 1)
		err := q.SubmitAsync("s", i, position.EmptyFEN, func(r AnalysisResult) { results <- r })
		if err != nil {
			t.Fatalf("SubmitAsync: %v", err)
		}
		select {
		case r := <-results:
			if !errors.Is(r.Error, analysis.ErrUnavailable) {
				t.Fatalf("result %d error = %v; want ErrUnavailable", i, r.Error)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("result %d never arrived", i)
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if len(built) != 3 {
		t.Fatalf("factory called %d times; want 3", len(built))
	}
	for i, a := range built {
		if !a.closed {
			t.Errorf("analyst %d was not closed", i)
		}
	}
}
