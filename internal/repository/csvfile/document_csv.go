package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"docregistry/internal/model"
	"docregistry/internal/repository"
)

// Columns of the record file, in the order they are written.
var header = []string{"document_id", "title", "tags", "uploaded_by", "permissions"}

// listSep joins tags and permissions inside a single column. Values may not
// contain it.
const listSep = ","

// ErrCarriageReturn is returned by Insert for records with a '\r' in any
// field. The CSV reader folds "\r\n" inside quoted fields to "\n", so such a
// record would not read back unchanged.
var ErrCarriageReturn = errors.New("csv fields cannot contain carriage returns")

// DocumentCSV is a flat-file implementation of repository.DocumentRepository.
// The whole file is rewritten on every mutation through a temporary file that
// is renamed over the original, so readers see either the old or the new set.
// Mutations are serialized by mu; reads share it.
type DocumentCSV struct {
	path string
	mu   sync.RWMutex

	// rename is os.Rename outside of tests.
	rename func(oldpath, newpath string) error
}

var _ repository.DocumentRepository = (*DocumentCSV)(nil)

// NewDocumentCSV opens the record file at path, creating it with a header row
// if it does not exist. Temporary files left over by an interrupted write are
// removed.
func NewDocumentCSV(path string) (*DocumentCSV, error) {
	if path == "" {
		return nil, fmt.Errorf("csv path is required")
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve csv path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return nil, fmt.Errorf("create csv directory: %w", err)
	}

	r := &DocumentCSV{path: abs, rename: os.Rename}

	stale, _ := filepath.Glob(r.tempPattern())
	for _, f := range stale {
		_ = os.Remove(f)
	}

	if _, err := os.Stat(abs); errors.Is(err, os.ErrNotExist) {
		if err := r.writeAll(nil); err != nil {
			return nil, fmt.Errorf("initialize csv: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat csv: %w", err)
	}
	return r, nil
}

// Path returns the absolute path of the record file.
func (r *DocumentCSV) Path() string { return r.path }

func (r *DocumentCSV) Insert(ctx context.Context, doc model.Document) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if hasCarriageReturn(doc) {
		return fmt.Errorf("insert %q: %w", doc.DocumentID, ErrCarriageReturn)
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	docs, err := r.readAll()
	if err != nil {
		return err
	}
	for _, d := range docs {
		if d.DocumentID == doc.DocumentID {
			return repository.ErrDuplicateID
		}
	}
	return r.writeAll(append(docs, doc))
}

func (r *DocumentCSV) List(ctx context.Context) ([]model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.readAll()
}

func (r *DocumentCSV) FindByID(ctx context.Context, id string) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	docs, err := r.readAll()
	if err != nil {
		return nil, err
	}
	for i := range docs {
		if docs[i].DocumentID == id {
			return &docs[i], nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *DocumentCSV) Delete(ctx context.Context, id string, pre repository.Precondition) (*model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	docs, err := r.readAll()
	if err != nil {
		return nil, err
	}

	idx := -1
	for i := range docs {
		if docs[i].DocumentID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, repository.ErrNotFound
	}

	found := docs[idx]
	if pre != nil {
		if err := pre(found); err != nil {
			return nil, err
		}
	}

	kept := make([]model.Document, 0, len(docs)-1)
	kept = append(kept, docs[:idx]...)
	kept = append(kept, docs[idx+1:]...)
	if err := r.writeAll(kept); err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *DocumentCSV) Ping(ctx context.Context) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, err := os.Open(r.path)
	if err != nil {
		return err
	}
	return f.Close()
}

func hasCarriageReturn(doc model.Document) bool {
	fields := append([]string{doc.DocumentID, doc.Title, doc.UploadedBy}, doc.Tags...)
	fields = append(fields, doc.Permissions...)
	for _, f := range fields {
		if strings.ContainsRune(f, '\r') {
			return true
		}
	}
	return false
}

func (r *DocumentCSV) tempPattern() string {
	return filepath.Join(filepath.Dir(r.path), "."+filepath.Base(r.path)+".*.tmp")
}

func (r *DocumentCSV) readAll() ([]model.Document, error) {
	f, err := os.Open(r.path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer f.Close()
	return decode(f)
}

// writeAll replaces the file contents with docs. On any failure the previous
// file is left untouched and the temporary file is removed.
func (r *DocumentCSV) writeAll(docs []model.Document) (err error) {
	dir := filepath.Dir(r.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if err = encode(tmp, docs); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = r.rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}

	// Persist the rename itself; failure here does not undo the swap.
	if d, derr := os.Open(dir); derr == nil {
		_ = d.Sync()
		d.Close()
	}
	return nil
}

func encode(w io.Writer, docs []model.Document) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, d := range docs {
		row := []string{
			d.DocumentID,
			d.Title,
			strings.Join(d.Tags, listSep),
			d.UploadedBy,
			strings.Join(d.Permissions, listSep),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// decode reads records by column name, so files with reordered columns load.
func decode(rd io.Reader) ([]model.Document, error) {
	cr := csv.NewReader(rd)
	head, err := cr.Read()
	if err == io.EOF {
		return []model.Document{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}

	col := make(map[string]int, len(head))
	for i, name := range head {
		col[name] = i
	}
	for _, name := range header {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("csv header missing column %q", name)
		}
	}

	docs := make([]model.Document, 0)
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv record: %w", err)
		}
		docs = append(docs, model.Document{
			DocumentID:  row[col["document_id"]],
			Title:       row[col["title"]],
			Tags:        splitList(row[col["tags"]]),
			UploadedBy:  row[col["uploaded_by"]],
			Permissions: splitList(row[col["permissions"]]),
		})
	}
	return docs, nil
}

func splitList(s string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, listSep)
}
