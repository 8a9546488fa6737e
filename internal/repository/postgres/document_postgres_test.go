package postgres

import (
	"context"
	"errors"
	"testing"

	"docregistry/internal/model"
	"docregistry/internal/repository"
	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{"document_id", "title", "tags", "uploaded_by", "permissions"}

func newMock(t *testing.T) (*DocumentPostgres, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("an error '%s' was not expected when opening a stub database connection", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewDocumentPostgres(db), mock
}

func TestDocumentPostgres_Insert(t *testing.T) {
	ctx := context.Background()
	doc := model.Document{
		DocumentID:  "doc1",
		Title:       "Report",
		Tags:        []string{"finance", "q3"},
		UploadedBy:  "editor@example.com",
		Permissions: nil,
	}

	t.Run("inserted", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectExec("INSERT INTO documents").
			WithArgs("doc1", "Report", `["finance","q3"]`, "editor@example.com", `[]`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Insert(ctx, doc))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("conflict", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectExec("INSERT INTO documents (.+) ON CONFLICT \\(document_id\\) DO NOTHING").
			WithArgs("doc1", "Report", `["finance","q3"]`, "editor@example.com", `[]`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Insert(ctx, doc), repository.ErrDuplicateID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("exec error", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectExec("INSERT INTO documents").WillReturnError(errors.New("connection reset"))

		err := repo.Insert(ctx, doc)
		assert.ErrorContains(t, err, "insert document: connection reset")
	})
}

func TestDocumentPostgres_List(t *testing.T) {
	repo, mock := newMock(t)

	rows := sqlmock.NewRows(columns).
		AddRow("doc1", "One", `["a"]`, "editor@example.com", `["read"]`).
		AddRow("doc2", "Two", `[]`, "admin@example.com", `[]`)
	mock.ExpectQuery("SELECT (.+) FROM documents ORDER BY seq").WillReturnRows(rows)

	docs, err := repo.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []model.Document{
		{DocumentID: "doc1", Title: "One", Tags: []string{"a"}, UploadedBy: "editor@example.com", Permissions: []string{"read"}},
		{DocumentID: "doc2", Title: "Two", Tags: []string{}, UploadedBy: "admin@example.com", Permissions: []string{}},
	}, docs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_ListBadJSON(t *testing.T) {
	repo, mock := newMock(t)
	rows := sqlmock.NewRows(columns).AddRow("doc1", "One", `not json`, "editor@example.com", `[]`)
	mock.ExpectQuery("SELECT (.+) FROM documents").WillReturnRows(rows)

	_, err := repo.List(context.Background())
	assert.ErrorContains(t, err, "decode tags")
}

func TestDocumentPostgres_FindByID(t *testing.T) {
	repo, mock := newMock(t)
	ctx := context.Background()

	t.Run("found", func(t *testing.T) {
		rows := sqlmock.NewRows(columns).AddRow("doc1", "One", `["a"]`, "editor@example.com", `[]`)
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE document_id = ?").
			WithArgs("doc1").
			WillReturnRows(rows)

		doc, err := repo.FindByID(ctx, "doc1")
		require.NoError(t, err)
		assert.Equal(t, "doc1", doc.DocumentID)
		assert.Equal(t, []string{"a"}, doc.Tags)
	})

	t.Run("not found", func(t *testing.T) {
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE document_id = ?").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(columns))

		doc, err := repo.FindByID(ctx, "missing")
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.Nil(t, doc)
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDocumentPostgres_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("deleted", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FROM documents WHERE document_id = (.+) FOR UPDATE").
			WithArgs("doc1").
			WillReturnRows(sqlmock.NewRows(columns).AddRow("doc1", "One", `[]`, "editor@example.com", `[]`))
		mock.ExpectExec("DELETE FROM documents WHERE document_id = ?").
			WithArgs("doc1").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		var checked bool
		doc, err := repo.Delete(ctx, "doc1", func(d model.Document) error {
			checked = d.UploadedBy == "editor@example.com"
			return nil
		})
		require.NoError(t, err)
		assert.True(t, checked)
		assert.Equal(t, "doc1", doc.DocumentID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("not found", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FOR UPDATE").
			WithArgs("missing").
			WillReturnRows(sqlmock.NewRows(columns))
		mock.ExpectRollback()

		_, err := repo.Delete(ctx, "missing", nil)
		assert.ErrorIs(t, err, repository.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("precondition rejects", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FOR UPDATE").
			WithArgs("doc1").
			WillReturnRows(sqlmock.NewRows(columns).AddRow("doc1", "One", `[]`, "admin@example.com", `[]`))
		mock.ExpectRollback()

		denied := errors.New("denied")
		_, err := repo.Delete(ctx, "doc1", func(model.Document) error { return denied })
		assert.ErrorIs(t, err, denied)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("delete error rolls back", func(t *testing.T) {
		repo, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery("SELECT (.+) FOR UPDATE").
			WithArgs("doc1").
			WillReturnRows(sqlmock.NewRows(columns).AddRow("doc1", "One", `[]`, "admin@example.com", `[]`))
		mock.ExpectExec("DELETE FROM documents").WillReturnError(errors.New("disk full"))
		mock.ExpectRollback()

		_, err := repo.Delete(ctx, "doc1", nil)
		assert.ErrorContains(t, err, "delete document: disk full")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestDocumentPostgres_Ping(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectPing()
	assert.NoError(t, NewDocumentPostgres(db).Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
