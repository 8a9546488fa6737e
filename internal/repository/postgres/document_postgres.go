package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"docregistry/internal/model"
	"docregistry/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// Uniqueness is enforced by the primary key; insertion order is kept by the
// identity column seq. Tags and permissions are JSONB arrays.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

// Insert adds a row; a conflicting document_id leaves the table unchanged.
func (r *DocumentPostgres) Insert(ctx context.Context, doc model.Document) error {
	const q = `
		INSERT INTO documents (document_id, title, tags, uploaded_by, permissions)
		VALUES ($1, $2, $3::jsonb, $4, $5::jsonb)
		ON CONFLICT (document_id) DO NOTHING
	`
	tags, err := encodeList(doc.Tags)
	if err != nil {
		return err
	}
	perms, err := encodeList(doc.Permissions)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, q, doc.DocumentID, doc.Title, tags, doc.UploadedBy, perms)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	if n == 0 {
		return repository.ErrDuplicateID
	}
	return nil
}

// List returns all rows in insertion order.
func (r *DocumentPostgres) List(ctx context.Context) ([]model.Document, error) {
	const q = `
		SELECT document_id, title, tags, uploaded_by, permissions
		FROM documents
		ORDER BY seq
	`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	const q = `
		SELECT document_id, title, tags, uploaded_by, permissions
		FROM documents
		WHERE document_id = $1
	`
	d, err := scanDocument(r.db.QueryRowContext(ctx, q, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Delete locks the row, checks pre and removes it in one transaction.
func (r *DocumentPostgres) Delete(ctx context.Context, id string, pre repository.Precondition) (*model.Document, error) {
	const qLock = `
		SELECT document_id, title, tags, uploaded_by, permissions
		FROM documents
		WHERE document_id = $1
		FOR UPDATE
	`
	const qDelete = `DELETE FROM documents WHERE document_id = $1`

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	d, err := scanDocument(tx.QueryRowContext(ctx, qLock, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	if pre != nil {
		if err := pre(d); err != nil {
			return nil, err
		}
	}
	if _, err := tx.ExecContext(ctx, qDelete, id); err != nil {
		return nil, fmt.Errorf("delete document: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return &d, nil
}

// Ping verifies database connectivity.
func (r *DocumentPostgres) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(s scanner) (model.Document, error) {
	var (
		d           model.Document
		tags, perms []byte
	)
	if err := s.Scan(&d.DocumentID, &d.Title, &tags, &d.UploadedBy, &perms); err != nil {
		return model.Document{}, err
	}
	if err := json.Unmarshal(tags, &d.Tags); err != nil {
		return model.Document{}, fmt.Errorf("decode tags: %w", err)
	}
	if err := json.Unmarshal(perms, &d.Permissions); err != nil {
		return model.Document{}, fmt.Errorf("decode permissions: %w", err)
	}
	d.Normalize()
	return d, nil
}

func encodeList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
