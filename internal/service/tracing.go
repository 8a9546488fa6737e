package service

import (
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("docregistry/internal/service")

// Outcomes a caller can cause; spans ending with these keep an unset status.
var expectedErrors = []error{
	ErrAuthFailure,
	ErrUnauthenticated,
	ErrUnknownSubject,
	ErrUnauthorized,
	ErrNotFound,
	ErrDuplicateID,
	ErrInvalidDocument,
	ErrContentNotFound,
	ErrContentTooLarge,
}

// fail marks span as failed unless err is an expected outcome, and returns
// err unchanged.
func fail(span trace.Span, err error) error {
	for _, e := range expectedErrors {
		if errors.Is(err, e) {
			return err
		}
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
