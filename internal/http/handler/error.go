package handler

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"docregistry/internal/http/middleware"
	"docregistry/internal/logging"
	"docregistry/internal/service"
)

// errorPayload defines the standardized error response body.
type errorPayload struct {
	RequestID string        `json:"request_id"`
	Error     errorEnvelope `json:"error"`
}

type errorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// requestIDFromCtx extracts request_id previously stored by middleware.RequestID.
func requestIDFromCtx(c *fiber.Ctx) string {
	if v := c.Locals(middleware.RequestIDLocalKey); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// writeError writes a standardized JSON error response without leaking internal errors.
//
// Parameters:
// - status: HTTP status code to return
// - code: machine-readable short error code (e.g., "INVALID_TOKEN", "NOT_FOUND", "INTERNAL_ERROR")
// - message: human-readable safe message (no internal details)
func writeError(c *fiber.Ctx, status int, code, message string) error {
	res := errorPayload{
		RequestID: requestIDFromCtx(c),
		Error: errorEnvelope{
			Code:    code,
			Message: message,
		},
	}
	return c.Status(status).JSON(res)
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var serviceErrors = []errorMapping{
	{service.ErrAuthFailure, fiber.StatusUnauthorized, "INVALID_CREDENTIALS", "incorrect email or password"},
	{service.ErrUnauthenticated, fiber.StatusUnauthorized, "INVALID_TOKEN", "invalid or expired token"},
	{service.ErrUnknownSubject, fiber.StatusUnauthorized, "UNKNOWN_USER", "user not found"},
	{service.ErrUnavailable, fiber.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "identity directory unavailable"},
	{service.ErrUnauthorized, fiber.StatusForbidden, "FORBIDDEN", "you do not have permission to perform this action"},
	{service.ErrNotFound, fiber.StatusNotFound, "NOT_FOUND", "document not found"},
	{service.ErrDuplicateID, fiber.StatusBadRequest, "DUPLICATE_ID", "document id already exists"},
	{service.ErrContentNotFound, fiber.StatusNotFound, "CONTENT_NOT_FOUND", "document content not found"},
	{service.ErrContentTooLarge, fiber.StatusRequestEntityTooLarge, "CONTENT_TOO_LARGE", "document content too large"},
}

const loggerLocalKey = "logger"

// withLogger makes logger available to the handlers behind it.
func withLogger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals(loggerLocalKey, logger)
		return c.Next()
	}
}

// loggerFromCtx returns the logger set by withLogger. Handlers mounted
// without it log nothing.
func loggerFromCtx(c *fiber.Ctx) *slog.Logger {
	if l, ok := c.Locals(loggerLocalKey).(*slog.Logger); ok && l != nil {
		return l
	}
	return logging.Discard()
}

// writeServiceError maps service errors to responses. Validation errors
// carry their own message; anything unrecognised is logged and reported as
// a 500.
func writeServiceError(c *fiber.Ctx, err error) error {
	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			if m.status == fiber.StatusUnauthorized {
				c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			}
			return writeError(c, m.status, m.code, m.message)
		}
	}
	if errors.Is(err, service.ErrInvalidDocument) {
		return writeError(c, fiber.StatusBadRequest, "INVALID_DOCUMENT", err.Error())
	}

	loggerFromCtx(c).ErrorContext(c.UserContext(), "request failed",
		"request_id", requestIDFromCtx(c),
		"method", c.Method(),
		"path", c.Path(),
		"error", err,
	)
	return writeError(c, fiber.StatusInternalServerError, "INTERNAL_ERROR", "internal server error")
}

// ErrorHandler returns a Fiber global error handler that standardizes error responses.
func ErrorHandler() fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}

		switch status {
		case fiber.StatusBadRequest:
			return writeError(c, status, "BAD_REQUEST", "bad request")
		case fiber.StatusUnauthorized:
			return writeError(c, status, "UNAUTHENTICATED", "authentication required")
		case fiber.StatusForbidden:
			return writeError(c, status, "FORBIDDEN", "forbidden")
		case fiber.StatusNotFound:
			return writeError(c, status, "NOT_FOUND", "resource not found")
		case fiber.StatusMethodNotAllowed:
			return writeError(c, status, "METHOD_NOT_ALLOWED", "method not allowed")
		case fiber.StatusRequestEntityTooLarge:
			return writeError(c, status, "CONTENT_TOO_LARGE", "request body too large")
		case fiber.StatusTooManyRequests:
			return writeError(c, status, "TOO_MANY_REQUESTS", "too many requests")
		case fiber.StatusServiceUnavailable:
			return writeError(c, status, "SERVICE_UNAVAILABLE", "service unavailable")
		default:
			return writeError(c, status, "INTERNAL_ERROR", "internal server error")
		}
	}
}
