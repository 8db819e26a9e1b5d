// FILE: lixenwraith/chessassist/internal/server/analysis/engine.go
package analysis

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os/exec"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"chessassist/internal/server/core"
)

const (
	DefaultEnginePath = "stockfish"
	DefaultSearchTime = time.Second

	handshakeTimeout = 5 * time.Second
	mateScore        = 100.0 // pawns; mate in n scores ±(mateScore - n)
)

// EngineConfig configures a UCI engine collaborator.
type EngineConfig struct {
	Path       string
	SearchTime time.Duration
	SkillLevel int // 0-20, negative leaves the engine default
}

// Engine drives a UCI engine subprocess and reports its MultiPV lines as
// suggestions. One search runs at a time per engine.
type Engine struct {
	cmd        *exec.Cmd
	stdin      io.WriteCloser
	lines      chan string
	mu         sync.Mutex
	searchTime time.Duration
}

// NewEngine starts the engine process and completes the UCI handshake.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	path := cfg.Path
	if path == "" {
		path = DefaultEnginePath
	}
	cmd := exec.Command(path)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, err
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err = cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: failed to start engine: %v", ErrUnavailable, err)
	}

	e := newEngine(stdin, stdout, cfg.SearchTime)
	e.cmd = cmd

	ctx, cancel := context.WithTimeout(context.Background(), handshakeTimeout)
	defer cancel()
	if err := e.initialize(ctx, cfg.SkillLevel); err != nil {
		e.Close()
		return nil, err
	}
	return e, nil
}

// newEngine wires an engine over arbitrary pipes.
func newEngine(stdin io.WriteCloser, stdout io.Reader, searchTime time.Duration) *Engine {
	if searchTime <= 0 {
		searchTime = DefaultSearchTime
	}
	e := &Engine{
		stdin:      stdin,
		lines:      make(chan string, 256),
		searchTime: searchTime,
	}
	go func() {
		defer close(e.lines)
		sc := bufio.NewScanner(stdout)
		for sc.Scan() {
			e.lines <- sc.Text()
		}
	}()
	return e
}

func (e *Engine) initialize(ctx context.Context, skill int) error {
	if err := e.send("uci"); err != nil {
		return err
	}
	if _, err := e.waitFor(ctx, func(l string) bool { return l == "uciok" }); err != nil {
		return fmt.Errorf("waiting for uciok: %w", err)
	}
	if skill >= 0 {
		if skill > 20 {
			skill = 20
		}
		if err := e.send(fmt.Sprintf("setoption name Skill Level value %d", skill)); err != nil {
			return err
		}
	}
	return e.ready(ctx)
}

func (e *Engine) ready(ctx context.Context) error {
	if err := e.send("isready"); err != nil {
		return err
	}
	if _, err := e.waitFor(ctx, func(l string) bool { return l == "readyok" }); err != nil {
		return fmt.Errorf("waiting for readyok: %w", err)
	}
	return nil
}

func (e *Engine) send(cmd string) error {
	if _, err := fmt.Fprintln(e.stdin, cmd); err != nil {
		return fmt.Errorf("%w: write %q: %v", ErrUnavailable, cmd, err)
	}
	return nil
}

// waitFor consumes output lines until match accepts one and returns it.
func (e *Engine) waitFor(ctx context.Context, match func(string) bool) (string, error) {
	for {
		select {
		case line, ok := <-e.lines:
			if !ok {
				return "", fmt.Errorf("%w: engine closed unexpectedly", ErrUnavailable)
			}
			if match(line) {
				return line, nil
			}
		case <-ctx.Done():
			return "", fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
		}
	}
}

// Analyse runs one timed MultiPV search on fen.
func (e *Engine) Analyse(ctx context.Context, fen string, n int) ([]core.Suggestion, error) {
	if n <= 0 {
		n = DefaultCount
	}
	if strings.ContainsAny(fen, "\r\n") {
		return nil, fmt.Errorf("%w: line break in FEN", ErrInvalidPosition)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.send(fmt.Sprintf("setoption name MultiPV value %d", n)); err != nil {
		return nil, err
	}
	if err := e.send("ucinewgame"); err != nil {
		return nil, err
	}
	if err := e.ready(ctx); err != nil {
		return nil, err
	}
	if err := e.send("position fen " + fen); err != nil {
		return nil, err
	}
	if err := e.send(fmt.Sprintf("go movetime %d", e.searchTime.Milliseconds())); err != nil {
		return nil, err
	}

	// Guard against an engine that never answers: twice the search time plus a buffer.
	searchCtx, cancel := context.WithTimeout(ctx, 2*e.searchTime+time.Second)
	defer cancel()

	lines := make(map[int]pvLine)
	for {
		line, err := e.waitFor(searchCtx, func(string) bool { return true })
		if err != nil {
			// Leave the engine usable for the next request.
			_ = e.send("stop")
			return nil, err
		}
		if strings.HasPrefix(line, "info ") {
			if pv, ok := parseInfo(line); ok {
				lines[pv.multiPV] = pv
			}
			continue
		}
		if strings.HasPrefix(line, "bestmove") {
			break
		}
	}

	return collectLines(lines, n), nil
}

// Close asks the engine to quit, killing it if it does not exit in time.
func (e *Engine) Close() error {
	_ = e.send("quit")
	e.stdin.Close()
	if e.cmd == nil {
		return nil
	}

	done := make(chan error, 1)
	go func() {
		done <- e.cmd.Wait()
	}()

	select {
	case <-done:
		return nil
	case <-time.After(1 * time.Second):
		return e.cmd.Process.Kill()
	}
}

type pvLine struct {
	multiPV int
	depth   int
	move    string
	score   float64
}

// parseInfo extracts the first PV move and score from a UCI info line.
// Lines without a pv are ignored.
func parseInfo(line string) (pvLine, bool) {
	fields := strings.Fields(line)
	pv := pvLine{multiPV: 1}
	hasScore := false

	for i := 0; i < len(fields)-1; i++ {
		switch fields[i] {
		case "multipv":
			if n, err := strconv.Atoi(fields[i+1]); err == nil {
				pv.multiPV = n
			}
		case "depth":
			if n, err := strconv.Atoi(fields[i+1]); err == nil {
				pv.depth = n
			}
		case "cp":
			if n, err := strconv.Atoi(fields[i+1]); err == nil {
				pv.score = float64(n) / 100
				hasScore = true
			}
		case "mate":
			if n, err := strconv.Atoi(fields[i+1]); err == nil {
				if n > 0 {
					pv.score = mateScore - float64(n)
				} else {
					pv.score = -mateScore - float64(n)
				}
				hasScore = true
			}
		case "pv":
			pv.move = fields[i+1]
			return pv, hasScore
		}
	}
	return pvLine{}, false
}

func collectLines(lines map[int]pvLine, n int) []core.Suggestion {
	ranks := make([]int, 0, len(lines))
	for k := range lines {
		ranks = append(ranks, k)
	}
	sort.Ints(ranks)

	out := make([]core.Suggestion, 0, n)
	for _, k := range ranks {
		out = append(out, core.Suggestion{Move: lines[k].move, Score: lines[k].score})
	}
	return Normalize(out, n)
}
