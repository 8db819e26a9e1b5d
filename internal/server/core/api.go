// FILE: lixenwraith/chessassist/internal/server/core/api.go
package core

import "time"

// Request types

type CreateSessionRequest struct {
	FEN string `json:"fen,omitempty" validate:"omitempty,max=100"`
}

type PlaceRequest struct {
	Piece string `json:"piece" validate:"required,len=1"`
}

type ClickRequest struct {
	Square string `json:"square" validate:"required,len=2"`
}

// SelectRequest picks the palette entry used by square clicks: a piece
// symbol, "empty" for the eraser, or "none" to drop the selection.
type SelectRequest struct {
	Piece string `json:"piece" validate:"required,oneof=none empty P N B R Q K p n b r q k"`
}

type DragRequest struct {
	From string `json:"from" validate:"required,len=2"`
	To   string `json:"to" validate:"required,len=2"`
}

type LoadFENRequest struct {
	FEN string `json:"fen" validate:"required,max=100"`
}

type TurnRequest struct {
	Color string `json:"color" validate:"required,oneof=w b white black"`
}

type DecodeRequest struct {
	FEN string `json:"fen" validate:"required,max=100"`
}

type EncodeRequest struct {
	Board  Grid          `json:"board"`
	Fields FieldsPayload `json:"fields"`
}

// FieldsPayload carries the trailing FEN fields; empty values take defaults.
type FieldsPayload struct {
	ActiveColor string `json:"activeColor,omitempty" validate:"omitempty,oneof=w b"`
	Castling    string `json:"castling,omitempty" validate:"omitempty,max=4"`
	EnPassant   string `json:"enPassant,omitempty" validate:"omitempty,max=2"`
	HalfMove    int    `json:"halfMove,omitempty" validate:"omitempty,min=0,max=10000"`
	FullMove    int    `json:"fullMove,omitempty" validate:"omitempty,min=1,max=10000"`
}

// Grid is the board as rows of piece symbols, row 0 = rank 8, "" for empty.
type Grid [8][8]string

// Response types

type SessionResponse struct {
	SessionID string        `json:"sessionId"`
	FEN       string        `json:"fen"`
	Turn      string        `json:"turn"` // "w" or "b"
	Fields    FieldsPayload `json:"fields"`
	Board     Grid          `json:"board"`
	Selected  string        `json:"selected,omitempty"` // piece symbol, "empty" for eraser
	Revision  int           `json:"revision"`
	Analysis  AnalysisInfo  `json:"analysis"`
}

type AnalysisInfo struct {
	State       string       `json:"state"` // "idle", "pending", "ready", "failed"
	Suggestions []Suggestion `json:"suggestions,omitempty"`
	Highlights  []Highlight  `json:"highlights,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Suggestion is one ranked move returned by the analysis collaborator.
type Suggestion struct {
	Move  string  `json:"move"`
	Score float64 `json:"score"`
}

type Highlight struct {
	Square string `json:"square"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
	Type   string `json:"type"`             // "move-from" or "move-to"
	Number int    `json:"number,omitempty"` // 1-based rank of the suggestion, on "move-to" only
}

type BoardResponse struct {
	FEN   string `json:"fen"`
	Board string `json:"board"` // ASCII representation
}

type DecodeResponse struct {
	Placement string        `json:"placement"`
	Board     Grid          `json:"board"`
	Fields    FieldsPayload `json:"fields"`
}

type EncodeResponse struct {
	FEN string `json:"fen"`
}

type CoordsResponse struct {
	Square string `json:"square"`
	Row    int    `json:"row"`
	Col    int    `json:"col"`
}

// AnalysisEntry is one row of a session's analysis history.
type AnalysisEntry struct {
	FEN         string       `json:"fen"`
	Provider    string       `json:"provider"`
	Suggestions []Suggestion `json:"suggestions"`
	Error       string       `json:"error,omitempty"`
	ElapsedMs   int64        `json:"elapsedMs"`
	Applied     bool         `json:"applied"`
	CreatedAt   time.Time    `json:"createdAt"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}
