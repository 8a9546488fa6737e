package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"docregistry/internal/http/middleware"
	"docregistry/internal/model"
	"docregistry/internal/service"
)

type loginRequest struct {
	Username string `json:"username" form:"username"`
	Password string `json:"password" form:"password"`
}

// Login exchanges credentials for a bearer token.
// @Summary Log in
// @Description Accepts form-encoded or JSON username/password.
// @Tags auth
// @Accept x-www-form-urlencoded,json
// @Produce json
// @Param username formData string true "E-mail address"
// @Param password formData string true "Password"
// @Success 200 {object} service.Token
// @Failure 400 {object} errorPayload
// @Failure 401 {object} errorPayload
// @Failure 429 {object} errorPayload
// @Failure 503 {object} errorPayload
// @Router /auth/login [post]
func Login(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req loginRequest
		if err := c.BodyParser(&req); err != nil {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "username and password are required")
		}
		if req.Username == "" || req.Password == "" {
			return writeError(c, fiber.StatusBadRequest, "INVALID_BODY", "username and password are required")
		}

		tok, err := auth.Login(c.UserContext(), req.Username, req.Password)
		if err != nil {
			return writeServiceError(c, err)
		}
		return c.JSON(tok)
	}
}

// RequireUser verifies the bearer token and stores the resolved user in
// locals under middleware.UserLocalKey.
func RequireUser(auth service.AuthService) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw, ok := bearerToken(c.Get(fiber.HeaderAuthorization))
		if !ok {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
			return writeError(c, fiber.StatusUnauthorized, "MISSING_TOKEN", "bearer token required")
		}

		user, err := auth.Authenticate(c.UserContext(), raw)
		if err != nil {
			return writeServiceError(c, err)
		}
		c.Locals(middleware.UserLocalKey, user)
		return c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	scheme, raw, found := strings.Cut(strings.TrimSpace(header), " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	return raw, raw != ""
}

// actorFromCtx returns the user stored by RequireUser. Routes are only
// reachable through it, so a missing value is a wiring error.
func actorFromCtx(c *fiber.Ctx) (model.User, bool) {
	u, ok := c.Locals(middleware.UserLocalKey).(*model.User)
	if !ok || u == nil {
		return model.User{}, false
	}
	return *u, true
}
