// FILE: lixenwraith/chessassist/internal/server/processor/command.go
package processor

import (
	"chessassist/internal/server/core"
)

// CommandType defines the type of command being executed
type CommandType int

const (
	CmdCreateSession CommandType = iota
	CmdGetSession
	CmdDeleteSession
	CmdPlacePiece
	CmdErasePiece
	CmdMovePiece
	CmdClickSquare
	CmdSelectPiece
	CmdClearBoard
	CmdResetBoard
	CmdLoadFEN
	CmdSetActiveColor
	CmdAnalyse
	CmdGetBoard
	CmdEncode
	CmdDecode
	CmdCoords
)

// Command is a unified structure for all processor operations
type Command struct {
	Type      CommandType
	UserID    string
	SessionID string // For session-specific commands
	Square    string // Target square from the route, algebraic
	Args      any    // Command-specific arguments
}

// ProcessorResponse wraps the response with metadata
type ProcessorResponse struct {
	Success bool                `json:"success"`
	Pending bool                `json:"pending,omitempty"` // Analysis submitted, result arrives later
	Data    any                 `json:"data,omitempty"`
	Error   *core.ErrorResponse `json:"error,omitempty"`
}

func NewCreateSessionCommand(req core.CreateSessionRequest) Command {
	return Command{
		Type: CmdCreateSession,
		Args: req,
	}
}

func NewGetSessionCommand(sessionID string) Command {
	return Command{
		Type:      CmdGetSession,
		SessionID: sessionID,
	}
}

func NewDeleteSessionCommand(sessionID string) Command {
	return Command{
		Type:      CmdDeleteSession,
		SessionID: sessionID,
	}
}

func NewPlacePieceCommand(sessionID, square string, req core.PlaceRequest) Command {
	return Command{
		Type:      CmdPlacePiece,
		SessionID: sessionID,
		Square:    square,
		Args:      req,
	}
}

func NewErasePieceCommand(sessionID, square string) Command {
	return Command{
		Type:      CmdErasePiece,
		SessionID: sessionID,
		Square:    square,
	}
}

func NewMovePieceCommand(sessionID string, req core.DragRequest) Command {
	return Command{
		Type:      CmdMovePiece,
		SessionID: sessionID,
		Args:      req,
	}
}

func NewClickSquareCommand(sessionID string, req core.ClickRequest) Command {
	return Command{
		Type:      CmdClickSquare,
		SessionID: sessionID,
		Args:      req,
	}
}

func NewSelectPieceCommand(sessionID string, req core.SelectRequest) Command {
	return Command{
		Type:      CmdSelectPiece,
		SessionID: sessionID,
		Args:      req,
	}
}

func NewClearBoardCommand(sessionID string) Command {
	return Command{
		Type:      CmdClearBoard,
		SessionID: sessionID,
	}
}

func NewResetBoardCommand(sessionID string) Command {
	return Command{
		Type:      CmdResetBoard,
		SessionID: sessionID,
	}
}

func NewLoadFENCommand(sessionID string, req core.LoadFENRequest) Command {
	return Command{
		Type:      CmdLoadFEN,
		SessionID: sessionID,
		Args:      req,
	}
}

func NewSetActiveColorCommand(sessionID string, req core.TurnRequest) Command {
	return Command{
		Type:      CmdSetActiveColor,
		SessionID: sessionID,
		Args:      req,
	}
}

func NewAnalyseCommand(sessionID string) Command {
	return Command{
		Type:      CmdAnalyse,
		SessionID: sessionID,
	}
}

func NewGetBoardCommand(sessionID string) Command {
	return Command{
		Type:      CmdGetBoard,
		SessionID: sessionID,
	}
}

// Stateless codec commands

func NewEncodeCommand(req core.EncodeRequest) Command {
	return Command{
		Type: CmdEncode,
		Args: req,
	}
}

func NewDecodeCommand(req core.DecodeRequest) Command {
	return Command{
		Type: CmdDecode,
		Args: req,
	}
}

func NewCoordsCommand(square string) Command {
	return Command{
		Type:   CmdCoords,
		Square: square,
	}
}
