package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"docregistry/internal/identity"
	"docregistry/internal/model"
	"docregistry/internal/token"
)

// Token is the login response.
type Token struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// AuthService exchanges credentials for tokens and tokens for users.
type AuthService interface {
	// Login checks the credentials against the directory and issues a token
	// whose subject is the user's e-mail.
	Login(ctx context.Context, username, password string) (*Token, error)

	// Authenticate verifies a token and resolves its subject's current role.
	Authenticate(ctx context.Context, raw string) (*model.User, error)
}

type authService struct {
	dir     identity.Directory
	tokens  *token.Service
	timeout time.Duration
	logger  *slog.Logger
}

// NewAuthService builds an AuthService. timeout bounds each directory call;
// zero leaves calls bounded only by the caller's context.
func NewAuthService(dir identity.Directory, tokens *token.Service, timeout time.Duration, logger *slog.Logger) AuthService {
	return &authService{dir: dir, tokens: tokens, timeout: timeout, logger: logger.With("component", "auth")}
}

func (s *authService) Login(ctx context.Context, username, password string) (*Token, error) {
	ctx, span := tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	if username == "" || password == "" {
		return nil, ErrAuthFailure
	}

	dctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := s.dir.Authenticate(dctx, username, password)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrAuthFailure):
			s.logger.Info("login rejected", "username", username)
			return nil, ErrAuthFailure
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			s.logger.Warn("identity directory timed out", "error", err)
			return nil, fail(span, fmt.Errorf("%w: %v", ErrUnavailable, err))
		default:
			return nil, fail(span, fmt.Errorf("authenticate: %w", err))
		}
	}

	issued, err := s.tokens.Issue(user.Email)
	if err != nil {
		return nil, fail(span, fmt.Errorf("issue token: %w", err))
	}
	s.logger.Info("login succeeded", "user", user.Email, "role", user.Role)
	return &Token{AccessToken: issued.Token, TokenType: "bearer", ExpiresAt: issued.ExpiresAt}, nil
}

func (s *authService) Authenticate(ctx context.Context, raw string) (*model.User, error) {
	subject, err := s.tokens.Verify(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthenticated, err)
	}

	dctx, cancel := s.withTimeout(ctx)
	defer cancel()

	user, err := s.dir.Lookup(dctx, subject)
	if err != nil {
		switch {
		case errors.Is(err, identity.ErrNotFound):
			return nil, ErrUnknownSubject
		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		default:
			return nil, fmt.Errorf("lookup subject: %w", err)
		}
	}
	return user, nil
}

func (s *authService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
