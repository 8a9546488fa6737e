package repository

import (
	"context"

	"docregistry/internal/model"
)

// Precondition inspects the stored record while a delete holds it. A non-nil
// error aborts the delete and is returned to the caller unchanged.
type Precondition func(stored model.Document) error

// DocumentRepository is the persisted record set. Every method is atomic with
// respect to the other methods of the same repository.
// No business logic here; strictly persistence operations.
type DocumentRepository interface {
	// Insert stores doc. It returns ErrDuplicateID if a record with the same
	// DocumentID exists; the existence check and the write are one step.
	Insert(ctx context.Context, doc model.Document) error

	// List returns a consistent snapshot of all records in insertion order.
	List(ctx context.Context) ([]model.Document, error)

	// FindByID returns the record with the given id or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// Delete removes the record with the given id and returns it. If pre is
	// non-nil it is evaluated against the stored record before anything is
	// removed. A missing id returns ErrNotFound and changes nothing.
	Delete(ctx context.Context, id string, pre Precondition) (*model.Document, error)

	// Ping checks that the backing store is reachable.
	Ping(ctx context.Context) error
}
