// FILE: lixenwraith/chessassist/internal/server/editor/session.go
// Package editor holds the state of one board-editing session: the board,
// the trailing FEN fields, the palette selection and the latest analysis.
package editor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"chessassist/internal/position"
	"chessassist/internal/server/core"
)

var (
	ErrAnalysisInProgress = errors.New("analysis in progress")
	ErrInvalidPiece       = errors.New("invalid piece")
)

type analysisResult struct {
	state       core.AnalysisState
	revision    int // Board revision the result belongs to
	suggestions []core.Suggestion
	err         string
}

// Session is the editing state owned by one client. All methods are safe
// for concurrent use; the position codec itself holds no state.
type Session struct {
	mu        sync.RWMutex
	id        string
	ownerID   string
	board     position.Board
	fields    position.Fields
	selected  position.Piece
	selecting bool // selected == NoPiece with selecting set is the eraser
	revision  int
	analysis  analysisResult
	createdAt time.Time
	updatedAt time.Time
}

// Snapshot is an immutable copy of a session for responses.
type Snapshot struct {
	ID            string
	OwnerID       string
	FEN           string
	Board         position.Board
	Fields        position.Fields
	Selected      position.Piece
	Selecting     bool
	Revision      int
	Analysis      core.AnalysisState
	Suggestions   []core.Suggestion
	Highlights    []core.Highlight
	AnalysisError string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// New creates a session from FEN text, the standard position when fen is empty.
func New(id, fen string) (*Session, error) {
	if fen == "" {
		fen = position.StandardFEN
	}
	b, f, err := position.DecodeFull(fen)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Session{
		id:        id,
		board:     b,
		fields:    f,
		createdAt: now,
		updatedAt: now,
	}, nil
}

func (s *Session) ID() string {
	return s.id
}

func (s *Session) Owner() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ownerID
}

func (s *Session) SetOwner(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ownerID = userID
}

// touch records a board change. Any analysis result, pending or not,
// describes the previous position and is dropped.
func (s *Session) touch() {
	s.revision++
	s.analysis = analysisResult{state: core.AnalysisIdle, revision: s.revision}
	s.updatedAt = time.Now().UTC()
}

// Load replaces board and fields from FEN text. On error the session is unchanged.
func (s *Session) Load(fen string) error {
	b, f, err := position.DecodeFull(fen)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.board = b
	s.fields = f
	s.touch()
	return nil
}

// Select picks a palette piece for subsequent square clicks.
func (s *Session) Select(p position.Piece) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPiece, byte(p))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = p
	s.selecting = true
	return nil
}

// SelectEraser makes square clicks empty the square.
func (s *Session) SelectEraser() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = position.NoPiece
	s.selecting = true
}

func (s *Session) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = position.NoPiece
	s.selecting = false
}

// ClickSquare applies the current selection to sq. Without a selection the
// click does nothing and changed is false.
func (s *Session) ClickSquare(sq position.Square) (changed bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.selecting {
		if !sq.Valid() {
			return false, fmt.Errorf("%w: %v", position.ErrInvalidSquare, sq)
		}
		return false, nil
	}
	if err = s.board.Set(sq, s.selected); err != nil {
		return false, err
	}
	s.touch()
	return true, nil
}

// Place puts p on sq, replacing any piece there.
func (s *Session) Place(sq position.Square, p position.Piece) error {
	if !p.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidPiece, byte(p))
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.board.Set(sq, p); err != nil {
		return err
	}
	s.touch()
	return nil
}

func (s *Session) Erase(sq position.Square) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.board.Remove(sq); err != nil {
		return err
	}
	s.touch()
	return nil
}

// Drag moves whatever is on from onto to. Dropping a square onto itself is
// not a change.
func (s *Session) Drag(from, to position.Square) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.board.Move(from, to); err != nil {
		return err
	}
	if from != to {
		s.touch()
	}
	return nil
}

// Clear empties the board, keeps the side to move and drops castling rights.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.board = position.EmptyBoard()
	s.fields = position.Fields{
		ActiveColor: s.fields.ActiveColor,
		Castling:    "-",
	}.WithDefaults()
	s.touch()
}

// Reset restores the standard starting position with white to move.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.board = position.StandardBoard()
	s.fields = position.DefaultFields()
	s.touch()
}

// SetActiveColor changes the side to move, leaving the other fields alone.
func (s *Session) SetActiveColor(c position.Color) error {
	if c != position.White && c != position.Black {
		return fmt.Errorf("invalid side to move: %v", c)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.fields.ActiveColor == c {
		return nil
	}
	s.fields.ActiveColor = c
	s.touch()
	return nil
}

// FEN returns the full six-field encoding of the current position.
func (s *Session) FEN() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return position.Encode(s.board, s.fields)
}

func (s *Session) Board() position.Board {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.board
}

func (s *Session) Revision() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

// LastModified reports when the board or analysis last changed.
func (s *Session) LastModified() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.updatedAt
}

func (s *Session) AnalysisState() core.AnalysisState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.analysis.state
}

// BeginAnalysis marks the session pending and returns the position to send
// together with the revision the result must be applied to.
func (s *Session) BeginAnalysis() (fen string, revision int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.analysis.state == core.AnalysisPending {
		return "", 0, ErrAnalysisInProgress
	}
	s.analysis = analysisResult{state: core.AnalysisPending, revision: s.revision}
	return position.Encode(s.board, s.fields), s.revision, nil
}

// CompleteAnalysis stores suggestions computed for revision. It reports
// false and drops the result when the board changed in the meantime.
func (s *Session) CompleteAnalysis(revision int, suggestions []core.Suggestion) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.awaiting(revision) {
		return false
	}
	s.analysis = analysisResult{
		state:       core.AnalysisReady,
		revision:    revision,
		suggestions: append([]core.Suggestion(nil), suggestions...),
	}
	s.updatedAt = time.Now().UTC()
	return true
}

// FailAnalysis records a collaborator failure for revision. The board is
// never touched.
func (s *Session) FailAnalysis(revision int, cause error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.awaiting(revision) {
		return false
	}
	msg := "analysis failed"
	if cause != nil {
		msg = cause.Error()
	}
	s.analysis = analysisResult{state: core.AnalysisFailed, revision: revision, err: msg}
	s.updatedAt = time.Now().UTC()
	return true
}

func (s *Session) awaiting(revision int) bool {
	return s.analysis.state == core.AnalysisPending &&
		s.analysis.revision == revision &&
		s.revision == revision
}

// Snapshot returns a copy of the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	suggestions := append([]core.Suggestion(nil), s.analysis.suggestions...)
	return Snapshot{
		ID:            s.id,
		OwnerID:       s.ownerID,
		FEN:           position.Encode(s.board, s.fields),
		Board:         s.board,
		Fields:        s.fields,
		Selected:      s.selected,
		Selecting:     s.selecting,
		Revision:      s.revision,
		Analysis:      s.analysis.state,
		Suggestions:   suggestions,
		Highlights:    Highlights(suggestions),
		AnalysisError: s.analysis.err,
		CreatedAt:     s.createdAt,
		UpdatedAt:     s.updatedAt,
	}
}
