// FILE: lixenwraith/chessassist/internal/server/http/validator.go
package http

import (
	"fmt"
	"reflect"
	"strings"

	"chessassist/internal/server/core"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

// requestFor picks the body type for a route, nil when the route takes no body
func requestFor(method, path string) any {
	path = strings.TrimSuffix(path, "/")
	switch {
	case method == fiber.MethodPost && strings.HasSuffix(path, "/sessions"):
		return &core.CreateSessionRequest{}
	case method == fiber.MethodPut && strings.Contains(path, "/squares/"):
		return &core.PlaceRequest{}
	case method == fiber.MethodPost && strings.HasSuffix(path, "/click"):
		return &core.ClickRequest{}
	case method == fiber.MethodPost && strings.HasSuffix(path, "/select"):
		return &core.SelectRequest{}
	case method == fiber.MethodPost && strings.HasSuffix(path, "/drag"):
		return &core.DragRequest{}
	case method == fiber.MethodPut && strings.HasSuffix(path, "/fen"):
		return &core.LoadFENRequest{}
	case method == fiber.MethodPut && strings.HasSuffix(path, "/turn"):
		return &core.TurnRequest{}
	case method == fiber.MethodPost && strings.HasSuffix(path, "/fen/decode"):
		return &core.DecodeRequest{}
	case method == fiber.MethodPost && strings.HasSuffix(path, "/fen/encode"):
		return &core.EncodeRequest{}
	}
	return nil
}

// validationMiddleware parses and validates the body of routes that take one
func validationMiddleware(c *fiber.Ctx) error {
	method := c.Method()
	if method == fiber.MethodGet || method == fiber.MethodDelete || method == fiber.MethodOptions {
		return c.Next()
	}

	requestType := requestFor(method, c.Path())
	if requestType == nil {
		return c.Next()
	}

	// An empty body is the zero request; validation decides if that is enough
	if len(c.Body()) > 0 {
		if err := c.BodyParser(requestType); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
				Error:   "invalid request body",
				Code:    core.ErrInvalidRequest,
				Details: err.Error(),
			})
		}
	}

	if errs := validate.Struct(requestType); errs != nil {
		var details strings.Builder
		var verrs validator.ValidationErrors
		if ve, ok := errs.(validator.ValidationErrors); ok {
			verrs = ve
		}
		for _, err := range verrs {
			if details.Len() > 0 {
				details.WriteString("; ")
			}
			details.WriteString(describeValidation(err))
		}

		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "validation failed",
			Code:    core.ErrInvalidRequest,
			Details: details.String(),
		})
	}

	c.Locals("validatedBody", requestType)
	c.Locals("validated", true)

	return c.Next()
}

func describeValidation(err validator.FieldError) string {
	isString := err.Type().Kind() == reflect.String
	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", err.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", err.Field(), err.Param())
	case "len":
		return fmt.Sprintf("%s must be exactly %s characters", err.Field(), err.Param())
	case "min":
		if isString {
			return fmt.Sprintf("%s must be at least %s characters", err.Field(), err.Param())
		}
		return fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
	case "max":
		if isString {
			return fmt.Sprintf("%s must be at most %s characters", err.Field(), err.Param())
		}
		return fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
	default:
		return fmt.Sprintf("%s failed %s validation", err.Field(), err.Tag())
	}
}

// validatedBody returns the body stored by validationMiddleware
func validatedBody[T any](c *fiber.Ctx) (T, error) {
	var zero T
	if validated, ok := c.Locals("validated").(bool); !ok || !validated {
		return zero, fmt.Errorf("validation bypass detected")
	}
	body, ok := c.Locals("validatedBody").(*T)
	if !ok || body == nil {
		return zero, fmt.Errorf("validation data missing")
	}
	return *body, nil
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
