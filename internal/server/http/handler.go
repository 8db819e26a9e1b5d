// FILE: lixenwraith/chessassist/internal/server/http/handler.go
package http

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"chessassist/internal/server/core"
	"chessassist/internal/server/editor"
	"chessassist/internal/server/processor"
	"chessassist/internal/server/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const (
	rateLimitRate       = 10 // req/sec
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

// HTTPHandler handles HTTP requests and routes them to the processor
type HTTPHandler struct {
	proc *processor.Processor
	svc  *service.Service
}

func NewHTTPHandler(proc *processor.Processor, svc *service.Service) *HTTPHandler {
	return &HTTPHandler{proc: proc, svc: svc}
}

func NewFiberApp(proc *processor.Processor, svc *service.Service, devMode bool) *fiber.App {
	h := NewHTTPHandler(proc, svc)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second, // above the long-poll timeout
		IdleTimeout:  60 * time.Second,
	})

	// Global middleware (order matters)
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Health check (no rate limit)
	app.Get("/health", h.Health)

	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/register", ipLimiter(5, time.Minute, "5 registrations per minute allowed"), h.RegisterHandler)
	auth.Post("/login", ipLimiter(10, time.Minute, "10 login attempts per minute allowed"), h.LoginHandler)

	validateToken := svc.ValidateToken
	auth.Get("/me", AuthRequired(validateToken), h.GetCurrentUserHandler)
	auth.Post("/logout", AuthRequired(validateToken), h.LogoutHandler)

	// Editor routes with standard rate limiting
	maxReq := rateLimitRate
	if devMode {
		maxReq = rateLimitRate * 2
	}
	api.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			if xff := c.Get("X-Forwarded-For"); xff != "" {
				if idx := strings.Index(xff, ","); idx != -1 {
					return strings.TrimSpace(xff[:idx])
				}
				return xff
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			})
		},
	}))

	api.Use(contentTypeValidator)
	api.Use(validationMiddleware)

	// Sessions belong to whoever created them; anonymous sessions are shared by id
	sessions := api.Group("/sessions", OptionalAuth(validateToken))
	sessions.Post("/", h.CreateSession)
	sessions.Get("/:sessionId", h.GetSession)
	sessions.Delete("/:sessionId", h.DeleteSession)
	sessions.Put("/:sessionId/squares/:square", h.PlacePiece)
	sessions.Delete("/:sessionId/squares/:square", h.ErasePiece)
	sessions.Post("/:sessionId/click", h.ClickSquare)
	sessions.Post("/:sessionId/select", h.SelectPiece)
	sessions.Post("/:sessionId/drag", h.DragPiece)
	sessions.Post("/:sessionId/clear", h.ClearBoard)
	sessions.Post("/:sessionId/reset", h.ResetBoard)
	sessions.Put("/:sessionId/fen", h.LoadFEN)
	sessions.Put("/:sessionId/turn", h.SetActiveColor)
	sessions.Post("/:sessionId/analysis", h.Analyse)
	sessions.Get("/:sessionId/analyses", h.AnalysisHistory)
	sessions.Get("/:sessionId/board", h.GetBoard)

	// Stateless codec
	api.Post("/fen/decode", h.Decode)
	api.Post("/fen/encode", h.Encode)
	api.Get("/squares/:square", h.Coords)

	return app
}

func ipLimiter(max int, window time.Duration, details string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: window,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: details,
			})
		},
	})
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := core.ErrorResponse{
		Error: "internal server error",
		Code:  core.ErrInternalError,
	}

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		response.Error = e.Message

		switch code {
		case fiber.StatusNotFound, fiber.StatusBadRequest, fiber.StatusMethodNotAllowed:
			response.Code = core.ErrInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = core.ErrRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// statusFor maps a processor error code to an HTTP status
func statusFor(code string) int {
	switch code {
	case core.ErrSessionNotFound:
		return fiber.StatusNotFound
	case core.ErrUnauthorized:
		return fiber.StatusForbidden
	case core.ErrAnalysisInProgress:
		return fiber.StatusConflict
	case core.ErrResourceLimit, core.ErrAnalysisUnavailable:
		return fiber.StatusServiceUnavailable
	case core.ErrInternalError:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadRequest
	}
}

func badRequest(c *fiber.Ctx, msg, details string) error {
	return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
		Error:   msg,
		Code:    core.ErrInvalidRequest,
		Details: details,
	})
}

func internalError(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
		Error: msg,
		Code:  core.ErrInternalError,
	})
}

// respond writes a processor response, using status on success
func respond(c *fiber.Ctx, resp processor.ProcessorResponse, status int) error {
	if !resp.Success {
		return c.Status(statusFor(resp.Error.Code)).JSON(resp.Error)
	}
	if status == fiber.StatusNoContent {
		return c.SendStatus(status)
	}
	return c.Status(status).JSON(resp.Data)
}

// sessionID reads and checks the session path parameter
func sessionID(c *fiber.Ctx) (string, bool) {
	id := c.Params("sessionId")
	return id, isValidUUID(id)
}

func invalidSessionID(c *fiber.Ctx) error {
	return badRequest(c, "invalid session ID format", "session ID must be a valid UUID")
}

func bypass(c *fiber.Ctx, err error) error {
	return internalError(c, err.Error())
}

// execute runs a session command on behalf of the caller
func (h *HTTPHandler) execute(c *fiber.Ctx, cmd processor.Command, status int) error {
	cmd.UserID, _ = c.Locals("userID").(string)
	return respond(c, h.proc.Execute(cmd), status)
}

// Health check endpoint with storage status
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":   "healthy",
		"time":     time.Now().Unix(),
		"storage":  h.svc.GetStorageHealth(),
		"sessions": h.svc.SessionCount(),
	})
}

// CreateSession opens an editing session, optionally from FEN text
func (h *HTTPHandler) CreateSession(c *fiber.Ctx) error {
	req, err := validatedBody[core.CreateSessionRequest](c)
	if err != nil {
		return bypass(c, err)
	}
	return h.execute(c, processor.NewCreateSessionCommand(req), fiber.StatusCreated)
}

// GetSession returns the session, long-polling when wait=true until the
// revision or analysis state differs from the one the client already has
func (h *HTTPHandler) GetSession(c *fiber.Ctx) error {
	id, ok := sessionID(c)
	if !ok {
		return invalidSessionID(c)
	}

	if c.Query("wait", "false") != "true" {
		return h.execute(c, processor.NewGetSessionCommand(id), fiber.StatusOK)
	}

	revision, err := strconv.Atoi(c.Query("revision", "-1"))
	if err != nil {
		revision = -1
	}

	userID, _ := c.Locals("userID").(string)
	sess, err := h.svc.AuthorizeSession(id, userID)
	if err != nil {
		// Let the processor produce the error body
		return h.execute(c, processor.NewGetSessionCommand(id), fiber.StatusOK)
	}

	state := sess.AnalysisState()
	if s, ok := core.ParseAnalysisState(c.Query("analysis")); ok {
		state = s
	}

	h.awaitChange(c.Context(), sess, revision, state)

	// Changed, timed out, deleted or abandoned; the fresh read tells which
	return h.execute(c, processor.NewGetSessionCommand(id), fiber.StatusOK)
}

// awaitChange blocks while sess still matches the revision and analysis
// state the client has seen, until it changes, the wait times out or ctx ends
func (h *HTTPHandler) awaitChange(parent context.Context, sess *editor.Session, revision int, state core.AnalysisState) {
	unchanged := func() bool {
		return revision == sess.Revision() && state == sess.AnalysisState()
	}
	if !unchanged() {
		return
	}

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	notify := h.svc.RegisterWait(ctx, sess.ID(), revision, state)

	// A change may have landed before the wait was registered
	if !unchanged() {
		return
	}
	select {
	case <-notify:
	case <-ctx.Done():
	}
}

func (h *HTTPHandler) DeleteSession(c *fiber.Ctx) error {
	id, ok := sessionID(c)
	if !ok {
		return invalidSessionID(c)
	}
	return h.execute(c, processor.NewDeleteSessionCommand(id), fiber.StatusNoContent)
}

// PlacePiece puts a piece on the square in the path
func (h *HTTPHandler) PlacePiece(c *fiber.Ctx) error {
	id, ok := sessionID(c)
	if !ok {
		return invalidSessionID(c)
	}
	req, err := validatedBody[core.PlaceRequest](c)
	if err != nil {
		return bypass(c, err)
	}
	return h.execute(c, processor.NewPlacePieceCommand(id, c.Params("square"), req), fiber.StatusOK)
}

func (h *HTTPHandler) ErasePiece(c *fiber.Ctx) error {
	id, ok := sessionID(c)
	if !ok {
		return invalidSessionID(c)
	}
	return h.execute(c, processor.NewErasePieceCommand(id, c.Params("square")), fiber.StatusOK)
}

// ClickSquare applies the palette selection to a square
func (h *HTTPHandler) ClickSquare(c *fiber.Ctx) error {
	id, ok := sessionID(c)
	if !ok {
		return invalidSessionID(c)
	}
	req, err := validatedBody[core.ClickRequest](c)
	if err != nil {
		return bypass(c, err)
	}
	return h.execute(c, processor.NewClickSquareCommand(id, req), fiber.StatusOK)
}

func (h *HTTPHandler) SelectPiece(c *fiber.Ctx) error {
	id, ok := sessionID(c)
	if !ok {
		return invalidSessionID(c)
	}
	req, err := validatedBody[core.SelectRequest](c)
	if err != nil {
		return bypass(c, err)
	}
	return h.execute(c, processor.NewSelectPieceCommand(id, req), fiber.StatusOK)
}

func (h *HTTPHandler) DragPiece(c *fiber.Ctx) error {
	id, ok := sessionID(c)
	if !ok {
		return invalidSessionID(c)
	}
	req, err := validatedBody[core.DragRequest](c)
	if err != nil {
		return bypass(c, err)
	}
	return h.execute(c, processor.NewMovePieceCommand(id, req), fiber.StatusOK)
}

func (h *HTTPHandler) ClearBoard(c *fiber.Ctx) error {
	id, ok := sessionID(c)
	if !ok {
		return invalidSessionID(c)
	}
	return h.execute(c, processor.NewClearBoardCommand(id), fiber.StatusOK)
}

func (h *HTTPHandler) ResetBoard(c *fiber.Ctx) error {
	id, ok := sessionID(c)
	if !ok {
		return invalidSessionID(c)
	}
	return h.execute(c, processor.NewResetBoardCommand(id), fiber.StatusOK)
}

// LoadFEN replaces the position; a malformed text leaves the session as it was
func (h *HTTPHandler) LoadFEN(c *fiber.Ctx) error {
	id, ok := sessionID(c)
	if !ok {
		return invalidSessionID(c)
	}
	req, err := validatedBody[core.LoadFENRequest](c)
	if err != nil {
		return bypass(c, err)
	}
	return h.execute(c, processor.NewLoadFENCommand(id, req), fiber.StatusOK)
}

func (h *HTTPHandler) SetActiveColor(c *fiber.Ctx) error {
	id, ok := sessionID(c)
	if !ok {
		return invalidSessionID(c)
	}
	req, err := validatedBody[core.TurnRequest](c)
	if err != nil {
		return bypass(c, err)
	}
	return h.execute(c, processor.NewSetActiveColorCommand(id, req), fiber.StatusOK)
}

// Analyse queues the current position; the result arrives on the session
func (h *HTTPHandler) Analyse(c *fiber.Ctx) error {
	id, ok := sessionID(c)
	if !ok {
		return invalidSessionID(c)
	}
	return h.execute(c, processor.NewAnalyseCommand(id), fiber.StatusAccepted)
}

// AnalysisHistory lists audited analysis requests for the session, newest first
func (h *HTTPHandler) AnalysisHistory(c *fiber.Ctx) error {
	id, ok := sessionID(c)
	if !ok {
		return invalidSessionID(c)
	}

	userID, _ := c.Locals("userID").(string)
	if _, err := h.svc.AuthorizeSession(id, userID); err != nil {
		return h.execute(c, processor.NewGetSessionCommand(id), fiber.StatusOK)
	}

	limit := c.QueryInt("limit", defaultHistoryLimit)
	if limit <= 0 || limit > maxHistoryLimit {
		return badRequest(c, "invalid limit", fmt.Sprintf("limit must be between 1 and %d", maxHistoryLimit))
	}

	entries, err := h.svc.AnalysisHistory(id, limit)
	if err != nil {
		if errors.Is(err, service.ErrStorageDisabled) {
			return storageUnavailable(c)
		}
		return internalError(c, "failed to read analysis history")
	}
	return c.JSON(entries)
}

// GetBoard returns ASCII representation of the board
func (h *HTTPHandler) GetBoard(c *fiber.Ctx) error {
	id, ok := sessionID(c)
	if !ok {
		return invalidSessionID(c)
	}
	return h.execute(c, processor.NewGetBoardCommand(id), fiber.StatusOK)
}

func (h *HTTPHandler) Decode(c *fiber.Ctx) error {
	req, err := validatedBody[core.DecodeRequest](c)
	if err != nil {
		return bypass(c, err)
	}
	return respond(c, h.proc.Execute(processor.NewDecodeCommand(req)), fiber.StatusOK)
}

func (h *HTTPHandler) Encode(c *fiber.Ctx) error {
	req, err := validatedBody[core.EncodeRequest](c)
	if err != nil {
		return bypass(c, err)
	}
	return respond(c, h.proc.Execute(processor.NewEncodeCommand(req)), fiber.StatusOK)
}

func (h *HTTPHandler) Coords(c *fiber.Ctx) error {
	return respond(c, h.proc.Execute(processor.NewCoordsCommand(c.Params("square"))), fiber.StatusOK)
}
