package service

import "errors"

// Errors returned by the services. Handlers map these to status codes; the
// wrapped detail is never shown to clients except for ErrInvalidDocument.
var (
	ErrAuthFailure     = errors.New("incorrect email or password")
	ErrUnavailable     = errors.New("identity directory unavailable")
	ErrUnauthenticated = errors.New("invalid or expired token")
	ErrUnknownSubject  = errors.New("user not found")
	ErrUnauthorized    = errors.New("not permitted")
	ErrNotFound        = errors.New("document not found")
	ErrDuplicateID     = errors.New("document id already exists")
	ErrInvalidDocument = errors.New("invalid document")
	ErrContentNotFound = errors.New("document content not found")
	ErrContentTooLarge = errors.New("document content too large")
)
