// FILE: lixenwraith/chessassist/internal/client/api/types.go
package api

import (
	"time"

	"chessassist/internal/server/core"
)

// Editor and codec payloads are shared with the server
type (
	CreateSessionRequest = core.CreateSessionRequest
	SessionResponse      = core.SessionResponse
	AnalysisInfo         = core.AnalysisInfo
	Suggestion           = core.Suggestion
	BoardResponse        = core.BoardResponse
	DecodeResponse       = core.DecodeResponse
	EncodeRequest        = core.EncodeRequest
	EncodeResponse       = core.EncodeResponse
	CoordsResponse       = core.CoordsResponse
	AnalysisEntry        = core.AnalysisEntry
	ErrorResponse        = core.ErrorResponse
)

type HealthResponse struct {
	Status   string `json:"status"`
	Time     int64  `json:"time"`
	Storage  string `json:"storage,omitempty"`
	Sessions int    `json:"sessions"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type UserResponse struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
