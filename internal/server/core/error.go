package core

// Error codes
const (
	ErrSessionNotFound     = "SESSION_NOT_FOUND"
	ErrInvalidSquare       = "INVALID_SQUARE"
	ErrInvalidPiece        = "INVALID_PIECE"
	ErrMalformedEncoding   = "MALFORMED_ENCODING"
	ErrAnalysisInProgress  = "ANALYSIS_IN_PROGRESS"
	ErrAnalysisUnavailable = "ANALYSIS_UNAVAILABLE"
	ErrRateLimitExceeded   = "RATE_LIMIT_EXCEEDED"
	ErrInvalidContent      = "INVALID_CONTENT_TYPE"
	ErrInvalidRequest      = "INVALID_REQUEST"
	ErrInternalError       = "INTERNAL_ERROR"
	ErrResourceLimit       = "RESOURCE_LIMIT"
	ErrUnauthorized        = "UNAUTHORIZED"
)
