package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"docregistry/internal/model"
	"docregistry/internal/policy"
	"docregistry/internal/repository"
	"docregistry/internal/storage"
)

// DocumentService defines the use cases for document records and their content.
// Every method takes the authenticated actor; policy is applied here.
type DocumentService interface {
	// Upload creates a record. An empty UploadedBy is set to the actor.
	Upload(ctx context.Context, actor model.User, doc model.Document) (*model.Document, error)

	// List returns every record in insertion order.
	List(ctx context.Context, actor model.User) ([]model.Document, error)

	// Get returns a single record by id.
	Get(ctx context.Context, actor model.User, id string) (*model.Document, error)

	// Delete removes a record, then its content on a best-effort basis.
	Delete(ctx context.Context, actor model.User, id string) (*model.Document, error)

	// PutContent stores or replaces the content of an existing record.
	// size is the declared length, or -1 when unknown.
	PutContent(ctx context.Context, actor model.User, id string, r io.Reader, contentType string, size int64) (*storage.ObjectInfo, error)

	// GetContent opens the content of a record. The caller closes the reader.
	GetContent(ctx context.Context, actor model.User, id string) (io.ReadCloser, *storage.ObjectInfo, error)
}

type documentService struct {
	store   storage.Storage
	repo    repository.DocumentRepository
	maxSize int64
	logger  *slog.Logger
}

// NewDocumentService constructs a DocumentService. maxSize bounds content
// uploads; zero or less disables the bound.
func NewDocumentService(store storage.Storage, repo repository.DocumentRepository, maxSize int64, logger *slog.Logger) DocumentService {
	return &documentService{store: store, repo: repo, maxSize: maxSize, logger: logger.With("component", "documents")}
}

func (s *documentService) Upload(ctx context.Context, actor model.User, doc model.Document) (*model.Document, error) {
	ctx, span := startSpan(ctx, "DocumentService.Upload", actor, doc.DocumentID)
	defer span.End()

	if !policy.CanUpload(actor.Role) {
		return nil, ErrUnauthorized
	}
	doc.Normalize()
	if doc.UploadedBy == "" {
		doc.UploadedBy = actor.Email
	}
	if !policy.CanUploadAs(actor.Role, actor.Email, doc.UploadedBy) {
		return nil, ErrUnauthorized
	}
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	if err := s.repo.Insert(ctx, doc); err != nil {
		if errors.Is(err, repository.ErrDuplicateID) {
			return nil, ErrDuplicateID
		}
		return nil, fail(span, fmt.Errorf("insert document: %w", err))
	}
	s.logger.Info("document uploaded", "document_id", doc.DocumentID, "actor", actor.Email, "uploaded_by", doc.UploadedBy)
	return &doc, nil
}

func (s *documentService) List(ctx context.Context, actor model.User) ([]model.Document, error) {
	ctx, span := startSpan(ctx, "DocumentService.List", actor, "")
	defer span.End()

	if !policy.CanRead(actor.Role) {
		return nil, ErrUnauthorized
	}
	docs, err := s.repo.List(ctx)
	if err != nil {
		return nil, fail(span, fmt.Errorf("list documents: %w", err))
	}
	span.SetAttributes(attribute.Int("document.count", len(docs)))
	return docs, nil
}

func (s *documentService) Get(ctx context.Context, actor model.User, id string) (*model.Document, error) {
	ctx, span := startSpan(ctx, "DocumentService.Get", actor, id)
	defer span.End()

	if !policy.CanRead(actor.Role) {
		return nil, ErrUnauthorized
	}
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}
	return doc, nil
}

// Delete refuses non-mutating roles up front, then lets the repository check
// ownership against the stored record in the same critical section as the
// removal.
func (s *documentService) Delete(ctx context.Context, actor model.User, id string) (*model.Document, error) {
	ctx, span := startSpan(ctx, "DocumentService.Delete", actor, id)
	defer span.End()

	if !policy.CanMutate(actor.Role) {
		return nil, ErrUnauthorized
	}
	if id == "" {
		return nil, ErrNotFound
	}

	deleted, err := s.repo.Delete(ctx, id, func(stored model.Document) error {
		if !policy.CanDelete(actor.Role, actor.Email, stored.UploadedBy) {
			return ErrUnauthorized
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrNotFound
		case errors.Is(err, ErrUnauthorized):
			return nil, ErrUnauthorized
		default:
			return nil, fail(span, fmt.Errorf("delete document: %w", err))
		}
	}
	s.logger.Info("document deleted", "document_id", id, "actor", actor.Email)

	// The record is gone; content removal must not depend on the client
	// staying connected.
	if err := s.store.Delete(context.WithoutCancel(ctx), id); err != nil {
		s.logger.Warn("failed to delete document content", "document_id", id, "error", err)
	}
	return deleted, nil
}

func (s *documentService) PutContent(ctx context.Context, actor model.User, id string, r io.Reader, contentType string, size int64) (*storage.ObjectInfo, error) {
	ctx, span := startSpan(ctx, "DocumentService.PutContent", actor, id)
	defer span.End()

	if !policy.CanMutate(actor.Role) {
		return nil, ErrUnauthorized
	}
	if r == nil {
		return nil, fmt.Errorf("%w: content is required", ErrInvalidDocument)
	}
	doc, err := s.find(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}
	if !policy.CanWriteContent(actor.Role, actor.Email, doc.UploadedBy) {
		return nil, ErrUnauthorized
	}
	if s.maxSize > 0 {
		if size > s.maxSize {
			return nil, ErrContentTooLarge
		}
		r = &limitedReader{r: r, remaining: s.maxSize}
	}

	info, err := s.store.Put(ctx, id, r, storage.PutObjectOptions{Size: size, ContentType: contentType})
	if err != nil {
		switch {
		case errors.Is(err, ErrContentTooLarge):
			return nil, ErrContentTooLarge
		case errors.Is(err, storage.ErrInvalidKey):
			return nil, fmt.Errorf("%w: document id cannot address content", ErrInvalidDocument)
		case errors.Is(err, storage.ErrSizeMismatch):
			return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
		default:
			return nil, fail(span, fmt.Errorf("store content: %w", err))
		}
	}

	// A concurrent delete may have removed the record while content was
	// streaming; drop the orphan.
	if _, err := s.repo.FindByID(ctx, id); errors.Is(err, repository.ErrNotFound) {
		if derr := s.store.Delete(context.WithoutCancel(ctx), id); derr != nil {
			s.logger.Warn("failed to delete orphaned content", "document_id", id, "error", derr)
		}
		return nil, ErrNotFound
	}

	s.logger.Info("document content stored", "document_id", id, "actor", actor.Email, "size", info.Size)
	return &info, nil
}

func (s *documentService) GetContent(ctx context.Context, actor model.User, id string) (io.ReadCloser, *storage.ObjectInfo, error) {
	ctx, span := startSpan(ctx, "DocumentService.GetContent", actor, id)
	defer span.End()

	if !policy.CanRead(actor.Role) {
		return nil, nil, ErrUnauthorized
	}
	if _, err := s.find(ctx, id); err != nil {
		return nil, nil, fail(span, err)
	}
	rc, info, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidKey) {
			return nil, nil, ErrContentNotFound
		}
		return nil, nil, fail(span, fmt.Errorf("open content: %w", err))
	}
	return rc, &info, nil
}

func (s *documentService) find(ctx context.Context, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrNotFound
	}
	doc, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return doc, nil
}

// validateDocument enforces what every backend can store faithfully. List
// values are comma-joined on disk, so they cannot contain commas or be empty.
// No field may contain '\r': the flat-file reader normalises line endings.
func validateDocument(doc model.Document) error {
	for _, f := range [...]struct{ name, value string }{
		{"document_id", doc.DocumentID},
		{"title", doc.Title},
		{"uploaded_by", doc.UploadedBy},
	} {
		if strings.ContainsRune(f.value, '\r') {
			return fmt.Errorf("%w: %s contains a carriage return", ErrInvalidDocument, f.name)
		}
	}
	if strings.TrimSpace(doc.DocumentID) == "" {
		return fmt.Errorf("%w: document_id is required", ErrInvalidDocument)
	}
	if strings.Contains(doc.DocumentID, "/") || storage.ValidateKey(doc.DocumentID) != nil {
		return fmt.Errorf("%w: document_id %q is not a valid identifier", ErrInvalidDocument, doc.DocumentID)
	}
	if err := validateList("tags", doc.Tags); err != nil {
		return err
	}
	return validateList("permissions", doc.Permissions)
}

func validateList(field string, values []string) error {
	for _, v := range values {
		if v == "" {
			return fmt.Errorf("%w: %s must not contain empty values", ErrInvalidDocument, field)
		}
		if strings.Contains(v, ",") {
			return fmt.Errorf("%w: %s value %q contains a comma", ErrInvalidDocument, field, v)
		}
		if strings.ContainsRune(v, '\r') {
			return fmt.Errorf("%w: %s value %q contains a carriage return", ErrInvalidDocument, field, v)
		}
	}
	return nil
}

func startSpan(ctx context.Context, name string, actor model.User, id string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("actor.email", actor.Email),
		attribute.String("actor.role", string(actor.Role)),
	}
	if id != "" {
		attrs = append(attrs, attribute.String("document.id", id))
	}
	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// limitedReader fails with ErrContentTooLarge once more than remaining bytes
// have been read.
type limitedReader struct {
	r         io.Reader
	remaining int64
}

func (l *limitedReader) Read(p []byte) (int, error) {
	if l.remaining < 0 {
		return 0, ErrContentTooLarge
	}
	if int64(len(p)) > l.remaining+1 {
		p = p[:l.remaining+1]
	}
	n, err := l.r.Read(p)
	l.remaining -= int64(n)
	if l.remaining < 0 {
		return n, ErrContentTooLarge
	}
	return n, err
}
