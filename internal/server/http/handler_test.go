// FILE: lixenwraith/chessassist/internal/server/http/handler_test.go
package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"chessassist/internal/position"
	"chessassist/internal/server/analysis"
	"chessassist/internal/server/core"
	"chessassist/internal/server/processor"
	"chessassist/internal/server/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/go-cmp/cmp"
)

type stubAnalyst struct {
	suggestions []core.Suggestion
	release     chan struct{}
}

func (s *stubAnalyst) Analyse(ctx context.Context, fen string, n int) ([]core.Suggestion, error) {
	if s.release != nil {
		select {
		case <-s.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.suggestions, nil
}

func newTestApp(t *testing.T, a analysis.Analyst) *fiber.App {
	t.Helper()
	svc := service.New(nil, []byte("test-secret"))
	queue := processor.NewAnalysisQueue(func() (analysis.Analyst, error) { return a, nil },
		processor.QueueConfig{Workers: 1, Timeout: 2 * time.Second})
	proc := processor.New(svc, queue, "stub")
	t.Cleanup(func() {
		proc.Close()
		svc.Shutdown(time.Second)
	})
	return NewFiberApp(proc, svc, true)
}

// do sends a JSON request and decodes the reply into out when out is not nil
func do(t *testing.T, app *fiber.App, method, path string, body any, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("%s %s: decode: %v", method, path, err)
		}
	}
	return resp.StatusCode
}

func newSession(t *testing.T, app *fiber.App, fen string) core.SessionResponse {
	t.Helper()
	var s core.SessionResponse
	if status := do(t, app, "POST", "/api/v1/sessions", core.CreateSessionRequest{FEN: fen}, &s); status != fiber.StatusCreated {
		t.Fatalf("create session: status %d", status)
	}
	return s
}

func TestSessionEditing(t *testing.T) {
	app := newTestApp(t, &stubAnalyst{})
	s := newSession(t, app, position.EmptyFEN)
	base := "/api/v1/sessions/" + s.SessionID

	var got core.SessionResponse
	if status := do(t, app, "PUT", base+"/squares/e1", core.PlaceRequest{Piece: "K"}, &got); status != fiber.StatusOK {
		t.Fatalf("place: status %d", status)
	}
	do(t, app, "POST", base+"/select", core.SelectRequest{Piece: "k"}, nil)
	do(t, app, "POST", base+"/click", core.ClickRequest{Square: "e8"}, nil)
	do(t, app, "POST", base+"/drag", core.DragRequest{From: "e1", To: "d1"}, nil)
	do(t, app, "PUT", base+"/turn", core.TurnRequest{Color: "b"}, &got)

	if want := "4k3/8/8/8/8/8/8/3K4 b KQkq - 0 1"; got.FEN != want {
		t.Errorf("FEN = %q, want %q", got.FEN, want)
	}
	if got.Revision != 4 {
		t.Errorf("Revision = %d, want 4", got.Revision)
	}

	do(t, app, "DELETE", base+"/squares/e8", nil, &got)
	if got.Board[0][4] != "" {
		t.Errorf("e8 = %q after erase, want empty", got.Board[0][4])
	}

	var board core.BoardResponse
	if status := do(t, app, "GET", base+"/board", nil, &board); status != fiber.StatusOK {
		t.Fatalf("board: status %d", status)
	}
	if board.FEN != got.FEN {
		t.Errorf("board FEN = %q, want %q", board.FEN, got.FEN)
	}

	if status := do(t, app, "DELETE", base, nil, nil); status != fiber.StatusNoContent {
		t.Errorf("delete: status %d, want %d", status, fiber.StatusNoContent)
	}
	if status := do(t, app, "GET", base, nil, nil); status != fiber.StatusNotFound {
		t.Errorf("get after delete: status %d, want %d", status, fiber.StatusNotFound)
	}
}

func TestErrorStatus(t *testing.T) {
	app := newTestApp(t, &stubAnalyst{})
	s := newSession(t, app, "")
	base := "/api/v1/sessions/" + s.SessionID

	tests := []struct {
		name     string
		method   string
		path     string
		body     any
		wantCode int
		wantErr  string
	}{
		{"bad session id", "GET", "/api/v1/sessions/not-a-uuid", nil, fiber.StatusBadRequest, core.ErrInvalidRequest},
		{"unknown session", "GET", "/api/v1/sessions/8b0e6a57-5d7c-4a3f-9f43-1f6f3e2a9c10", nil, fiber.StatusNotFound, core.ErrSessionNotFound},
		{"off-board square", "PUT", base + "/squares/z9", core.PlaceRequest{Piece: "Q"}, fiber.StatusBadRequest, core.ErrInvalidSquare},
		{"unknown piece", "PUT", base + "/squares/a1", core.PlaceRequest{Piece: "x"}, fiber.StatusBadRequest, core.ErrInvalidPiece},
		{"missing piece", "PUT", base + "/squares/a1", core.PlaceRequest{}, fiber.StatusBadRequest, core.ErrInvalidRequest},
		{"malformed fen", "PUT", base + "/fen", core.LoadFENRequest{FEN: "8/8/8/8/8/8/8/9"}, fiber.StatusBadRequest, core.ErrMalformedEncoding},
		{"bad turn", "PUT", base + "/turn", core.TurnRequest{Color: "red"}, fiber.StatusBadRequest, core.ErrInvalidRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var e core.ErrorResponse
			if status := do(t, app, tt.method, tt.path, tt.body, &e); status != tt.wantCode {
				t.Errorf("status = %d, want %d", status, tt.wantCode)
			}
			if e.Code != tt.wantErr {
				t.Errorf("code = %q, want %q", e.Code, tt.wantErr)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	app := newTestApp(t, &stubAnalyst{})

	req := httptest.NewRequest("POST", "/api/v1/sessions", bytes.NewBufferString("fen=8/8"))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != fiber.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusUnsupportedMediaType)
	}
}

func TestCodecRoutes(t *testing.T) {
	app := newTestApp(t, &stubAnalyst{})

	var decoded core.DecodeResponse
	if status := do(t, app, "POST", "/api/v1/fen/decode", core.DecodeRequest{FEN: position.StandardFEN}, &decoded); status != fiber.StatusOK {
		t.Fatalf("decode: status %d", status)
	}
	if decoded.Board[7][4] != "K" || decoded.Board[0][3] != "q" {
		t.Errorf("decoded board has e1=%q d8=%q", decoded.Board[7][4], decoded.Board[0][3])
	}

	var encoded core.EncodeResponse
	if status := do(t, app, "POST", "/api/v1/fen/encode", core.EncodeRequest{Board: decoded.Board, Fields: decoded.Fields}, &encoded); status != fiber.StatusOK {
		t.Fatalf("encode: status %d", status)
	}
	if encoded.FEN != position.StandardFEN {
		t.Errorf("encode = %q, want %q", encoded.FEN, position.StandardFEN)
	}

	var coords core.CoordsResponse
	do(t, app, "GET", "/api/v1/squares/E4", nil, &coords)
	if diff := cmp.Diff(core.CoordsResponse{Square: "e4", Row: 4, Col: 4}, coords); diff != "" {
		t.Errorf("coords mismatch (-want +got):\n%s", diff)
	}

	var e core.ErrorResponse
	if status := do(t, app, "GET", "/api/v1/squares/i9", nil, &e); status != fiber.StatusBadRequest || e.Code != core.ErrInvalidSquare {
		t.Errorf("off-board square: status %d code %q", status, e.Code)
	}
}

func TestAnalysisLongPoll(t *testing.T) {
	release := make(chan struct{})
	a := &stubAnalyst{
		suggestions: []core.Suggestion{{Move: "e2e4", Score: 0.3}, {Move: "d2d4", Score: 0.2}},
		release:     release,
	}
	app := newTestApp(t, a)
	s := newSession(t, app, "")
	base := "/api/v1/sessions/" + s.SessionID

	var pending core.SessionResponse
	if status := do(t, app, "POST", base+"/analysis", nil, &pending); status != fiber.StatusAccepted {
		t.Fatalf("analysis: status %d", status)
	}
	if pending.Analysis.State != "pending" {
		t.Fatalf("state = %q, want pending", pending.Analysis.State)
	}

	var e core.ErrorResponse
	if status := do(t, app, "POST", base+"/analysis", nil, &e); status != fiber.StatusConflict {
		t.Errorf("second analysis: status %d, want %d", status, fiber.StatusConflict)
	}

	go func() {
		time.Sleep(50 * time.Millisecond)
		close(release)
	}()

	var ready core.SessionResponse
	do(t, app, "GET", base+"?wait=true&revision=0&analysis=pending", nil, &ready)
	if ready.Analysis.State != "ready" {
		t.Fatalf("state after wait = %q, want ready", ready.Analysis.State)
	}
	if diff := cmp.Diff(a.suggestions, ready.Analysis.Suggestions); diff != "" {
		t.Errorf("suggestions mismatch (-want +got):\n%s", diff)
	}
	if len(ready.Analysis.Highlights) != 4 {
		t.Errorf("got %d highlights, want 4", len(ready.Analysis.Highlights))
	}

	// History needs storage
	if status := do(t, app, "GET", base+"/analyses", nil, &e); status != fiber.StatusServiceUnavailable {
		t.Errorf("history without storage: status %d", status)
	}
}

func TestAuthWithoutStorage(t *testing.T) {
	app := newTestApp(t, &stubAnalyst{})

	var e core.ErrorResponse
	status := do(t, app, "POST", "/api/v1/auth/register",
		RegisterRequest{Username: "alice", Password: "hunter22x"}, &e)
	if status != fiber.StatusServiceUnavailable {
		t.Errorf("register: status %d, want %d", status, fiber.StatusServiceUnavailable)
	}

	if status := do(t, app, "GET", "/api/v1/auth/me", nil, &e); status != fiber.StatusUnauthorized || e.Code != core.ErrUnauthorized {
		t.Errorf("me: status %d code %q", status, e.Code)
	}
}

func TestHealth(t *testing.T) {
	app := newTestApp(t, &stubAnalyst{})
	newSession(t, app, "")

	var health struct {
		Status   string `json:"status"`
		Storage  string `json:"storage"`
		Sessions int    `json:"sessions"`
	}
	do(t, app, "GET", "/health", nil, &health)
	if health.Status != "healthy" || health.Sessions != 1 {
		t.Errorf("health = %+v", health)
	}
}

func TestAwaitChangeReturnsOnCancel(t *testing.T) {
	svc := service.New(nil, []byte("test-secret"))
	t.Cleanup(func() { svc.Shutdown(time.Second) })
	h := NewHTTPHandler(nil, svc)

	sess, err := svc.CreateSession("", "")
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		h.awaitChange(ctx, sess, sess.Revision(), sess.AnalysisState())
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("wait did not end after the request context was cancelled")
	}

	// A stale revision returns without waiting
	stale := make(chan struct{})
	go func() {
		h.awaitChange(context.Background(), sess, sess.Revision()+1, sess.AnalysisState())
		close(stale)
	}()
	select {
	case <-stale:
	case <-time.After(2 * time.Second):
		t.Fatal("wait blocked on a revision the client has not seen")
	}
}
