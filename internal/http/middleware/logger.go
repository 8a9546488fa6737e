package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"docregistry/internal/model"
)

// Logger logs each HTTP request as one structured record with request_id,
// method, path, status and latency (milliseconds). Authenticated requests
// also carry the user's e-mail.
func Logger(logger *slog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			// The app error handler has not run yet.
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			} else {
				status = fiber.StatusInternalServerError
			}
		}

		rid, _ := c.Locals(RequestIDLocalKey).(string)
		attrs := []slog.Attr{
			slog.String("request_id", rid),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", status),
			slog.Float64("latency", float64(time.Since(start).Microseconds())/1000),
		}
		if u, ok := c.Locals(UserLocalKey).(*model.User); ok {
			attrs = append(attrs, slog.String("user", u.Email))
		}

		level := slog.LevelInfo
		if status >= fiber.StatusInternalServerError {
			level = slog.LevelError
		}
		logger.LogAttrs(c.UserContext(), level, "http_request", attrs...)

		return err
	}
}
