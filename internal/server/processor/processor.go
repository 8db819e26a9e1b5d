// FILE: lixenwraith/chessassist/internal/server/processor/processor.go

package processor

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"chessassist/internal/position"
	"chessassist/internal/server/analysis"
	"chessassist/internal/server/core"
	"chessassist/internal/server/editor"
	"chessassist/internal/server/service"
)

const SelectEraser = "empty"

// Processor handles command execution and coordinates between the service
// and the analysis queue
type Processor struct {
	svc      *service.Service
	queue    *AnalysisQueue
	provider string // Collaborator name recorded in the audit log
}

// New creates a processor over an already running analysis queue
func New(svc *service.Service, queue *AnalysisQueue, provider string) *Processor {
	return &Processor{
		svc:      svc,
		queue:    queue,
		provider: provider,
	}
}

func (p *Processor) Execute(cmd Command) ProcessorResponse {
	switch cmd.Type {
	case CmdCreateSession:
		return p.handleCreateSession(cmd)
	case CmdGetSession:
		return p.handleGetSession(cmd)
	case CmdDeleteSession:
		return p.handleDeleteSession(cmd)
	case CmdPlacePiece:
		return p.handlePlacePiece(cmd)
	case CmdErasePiece:
		return p.handleErasePiece(cmd)
	case CmdMovePiece:
		return p.handleMovePiece(cmd)
	case CmdClickSquare:
		return p.handleClickSquare(cmd)
	case CmdSelectPiece:
		return p.handleSelectPiece(cmd)
	case CmdClearBoard:
		return p.mutate(cmd, func(s *editor.Session) error {
			s.Clear()
			return nil
		})
	case CmdResetBoard:
		return p.mutate(cmd, func(s *editor.Session) error {
			s.Reset()
			return nil
		})
	case CmdLoadFEN:
		return p.handleLoadFEN(cmd)
	case CmdSetActiveColor:
		return p.handleSetActiveColor(cmd)
	case CmdAnalyse:
		return p.handleAnalyse(cmd)
	case CmdGetBoard:
		return p.handleGetBoard(cmd)
	case CmdEncode:
		return p.handleEncode(cmd)
	case CmdDecode:
		return p.handleDecode(cmd)
	case CmdCoords:
		return p.handleCoords(cmd)
	default:
		return p.errorResponse("unknown command", core.ErrInvalidRequest)
	}
}

// session resolves the command's session, enforcing ownership
func (p *Processor) session(cmd Command) (*editor.Session, error) {
	return p.svc.AuthorizeSession(cmd.SessionID, cmd.UserID)
}

// mutate applies fn to the session, wakes waiters and returns the new state
func (p *Processor) mutate(cmd Command, fn func(*editor.Session) error) ProcessorResponse {
	s, err := p.session(cmd)
	if err != nil {
		return p.failure(err)
	}
	if err := fn(s); err != nil {
		return p.failure(err)
	}
	p.svc.NotifySession(s)
	return p.sessionResponse(s)
}

func (p *Processor) handleCreateSession(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.CreateSessionRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	s, err := p.svc.CreateSession(strings.TrimSpace(args.FEN), cmd.UserID)
	if err != nil {
		return p.failure(err)
	}
	return p.sessionResponse(s)
}

func (p *Processor) handleGetSession(cmd Command) ProcessorResponse {
	s, err := p.session(cmd)
	if err != nil {
		return p.failure(err)
	}
	return p.sessionResponse(s)
}

// handleDeleteSession removes a session; a pending analysis result is
// dropped when it arrives
func (p *Processor) handleDeleteSession(cmd Command) ProcessorResponse {
	if _, err := p.session(cmd); err != nil {
		return p.failure(err)
	}
	if err := p.svc.DeleteSession(cmd.SessionID); err != nil {
		return p.failure(err)
	}
	return ProcessorResponse{Success: true}
}

func (p *Processor) handlePlacePiece(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.PlaceRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}
	sq, err := parseSquare(cmd.Square)
	if err != nil {
		return p.failure(err)
	}
	piece, err := parsePiece(args.Piece)
	if err != nil {
		return p.failure(err)
	}

	return p.mutate(cmd, func(s *editor.Session) error {
		return s.Place(sq, piece)
	})
}

func (p *Processor) handleErasePiece(cmd Command) ProcessorResponse {
	sq, err := parseSquare(cmd.Square)
	if err != nil {
		return p.failure(err)
	}
	return p.mutate(cmd, func(s *editor.Session) error {
		return s.Erase(sq)
	})
}

func (p *Processor) handleMovePiece(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.DragRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}
	from, err := parseSquare(args.From)
	if err != nil {
		return p.failure(err)
	}
	to, err := parseSquare(args.To)
	if err != nil {
		return p.failure(err)
	}

	return p.mutate(cmd, func(s *editor.Session) error {
		return s.Drag(from, to)
	})
}

func (p *Processor) handleClickSquare(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.ClickRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}
	sq, err := parseSquare(args.Square)
	if err != nil {
		return p.failure(err)
	}

	return p.mutate(cmd, func(s *editor.Session) error {
		_, err := s.ClickSquare(sq)
		return err
	})
}

// handleSelectPiece picks the palette entry: a piece symbol, the eraser, or none
func (p *Processor) handleSelectPiece(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.SelectRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	switch args.Piece {
	case "none":
		return p.mutate(cmd, func(s *editor.Session) error {
			s.ClearSelection()
			return nil
		})
	case SelectEraser:
		return p.mutate(cmd, func(s *editor.Session) error {
			s.SelectEraser()
			return nil
		})
	}

	piece, err := parsePiece(args.Piece)
	if err != nil {
		return p.failure(err)
	}
	return p.mutate(cmd, func(s *editor.Session) error {
		return s.Select(piece)
	})
}

func (p *Processor) handleLoadFEN(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.LoadFENRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}
	return p.mutate(cmd, func(s *editor.Session) error {
		return s.Load(strings.TrimSpace(args.FEN))
	})
}

func (p *Processor) handleSetActiveColor(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.TurnRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}
	c, ok := position.ParseColor(args.Color)
	if !ok {
		return p.errorResponse(fmt.Sprintf("invalid color %q", args.Color), core.ErrInvalidRequest)
	}
	return p.mutate(cmd, func(s *editor.Session) error {
		return s.SetActiveColor(c)
	})
}

// handleAnalyse marks the session pending and submits the position to the
// queue; the result is applied asynchronously
func (p *Processor) handleAnalyse(cmd Command) ProcessorResponse {
	s, err := p.session(cmd)
	if err != nil {
		return p.failure(err)
	}

	fen, revision, err := s.BeginAnalysis()
	if err != nil {
		return p.failure(err)
	}
	ownerID := s.Owner()

	err = p.queue.SubmitAsync(s.ID(), revision, fen, func(result AnalysisResult) {
		p.applyAnalysis(s, ownerID, result)
	})
	if err != nil {
		s.FailAnalysis(revision, err)
		p.svc.NotifySession(s)
		return p.failure(err)
	}

	p.svc.NotifySession(s)
	resp := p.sessionResponse(s)
	resp.Pending = true
	return resp
}

// applyAnalysis stores a finished result if the board has not changed since
// it was requested. Stale results are only audited.
func (p *Processor) applyAnalysis(s *editor.Session, ownerID string, result AnalysisResult) {
	var applied bool
	if result.Error != nil {
		log.Printf("Analysis error for session %s: %v", result.SessionID, result.Error)
		applied = s.FailAnalysis(result.Revision, result.Error)
	} else {
		applied = s.CompleteAnalysis(result.Revision, result.Suggestions)
	}
	if applied {
		p.svc.NotifySession(s)
	}

	p.svc.RecordAnalysis(service.AnalysisAudit{
		SessionID:   result.SessionID,
		UserID:      ownerID,
		Provider:    p.provider,
		FEN:         result.FEN,
		Suggestions: result.Suggestions,
		Elapsed:     result.Elapsed,
		Err:         result.Error,
		Applied:     applied,
	})
}

// handleGetBoard returns board visualization
func (p *Processor) handleGetBoard(cmd Command) ProcessorResponse {
	s, err := p.session(cmd)
	if err != nil {
		return p.failure(err)
	}

	snap := s.Snapshot()
	return ProcessorResponse{
		Success: true,
		Data: core.BoardResponse{
			FEN:   snap.FEN,
			Board: snap.Board.ASCII(),
		},
	}
}

func (p *Processor) handleEncode(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.EncodeRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	b, err := boardFromGrid(args.Board)
	if err != nil {
		return p.failure(err)
	}
	f, err := fieldsFromPayload(args.Fields)
	if err != nil {
		return p.failure(err)
	}

	return ProcessorResponse{
		Success: true,
		Data:    core.EncodeResponse{FEN: position.Encode(b, f)},
	}
}

func (p *Processor) handleDecode(cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.DecodeRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	b, f, err := position.DecodeFull(strings.TrimSpace(args.FEN))
	if err != nil {
		return p.failure(err)
	}

	return ProcessorResponse{
		Success: true,
		Data: core.DecodeResponse{
			Placement: position.EncodePlacement(b),
			Board:     gridFromBoard(b),
			Fields:    payloadFromFields(f),
		},
	}
}

func (p *Processor) handleCoords(cmd Command) ProcessorResponse {
	sq, err := parseSquare(cmd.Square)
	if err != nil {
		return p.failure(err)
	}
	return ProcessorResponse{
		Success: true,
		Data:    core.CoordsResponse{Square: sq.String(), Row: sq.Row, Col: sq.Col},
	}
}

func (p *Processor) sessionResponse(s *editor.Session) ProcessorResponse {
	return ProcessorResponse{
		Success: true,
		Data:    buildSessionResponse(s.Snapshot()),
	}
}

// buildSessionResponse constructs the standard session response
func buildSessionResponse(snap editor.Snapshot) core.SessionResponse {
	resp := core.SessionResponse{
		SessionID: snap.ID,
		FEN:       snap.FEN,
		Turn:      snap.Fields.ActiveColor.String(),
		Fields:    payloadFromFields(snap.Fields),
		Board:     gridFromBoard(snap.Board),
		Revision:  snap.Revision,
		Analysis: core.AnalysisInfo{
			State:       snap.Analysis.String(),
			Suggestions: snap.Suggestions,
			Highlights:  snap.Highlights,
			Error:       snap.AnalysisError,
		},
	}

	if snap.Selecting {
		resp.Selected = SelectEraser
		if snap.Selected != position.NoPiece {
			resp.Selected = snap.Selected.String()
		}
	}
	return resp
}

// failure maps a domain error to its error code
func (p *Processor) failure(err error) ProcessorResponse {
	code := core.ErrInternalError
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		code = core.ErrSessionNotFound
	case errors.Is(err, service.ErrForbidden):
		code = core.ErrUnauthorized
	case errors.Is(err, service.ErrSessionLimit), errors.Is(err, ErrQueueFull):
		code = core.ErrResourceLimit
	case errors.Is(err, position.ErrInvalidSquare):
		code = core.ErrInvalidSquare
	case errors.Is(err, editor.ErrInvalidPiece):
		code = core.ErrInvalidPiece
	case errors.Is(err, position.ErrMalformedEncoding), errors.Is(err, analysis.ErrInvalidPosition):
		code = core.ErrMalformedEncoding
	case errors.Is(err, editor.ErrAnalysisInProgress):
		code = core.ErrAnalysisInProgress
	case errors.Is(err, analysis.ErrUnavailable), errors.Is(err, ErrQueueShutdown):
		code = core.ErrAnalysisUnavailable
	}

	if code == core.ErrInternalError {
		log.Printf("Unexpected processor error: %v", err)
	}
	return p.errorResponse(err.Error(), code)
}

// errorResponse creates error response
func (p *Processor) errorResponse(message, code string) ProcessorResponse {
	return ProcessorResponse{
		Success: false,
		Error: &core.ErrorResponse{
			Error: message,
			Code:  code,
		},
	}
}

// Close stops the analysis queue
func (p *Processor) Close() error {
	return p.queue.Shutdown(5 * time.Second)
}
