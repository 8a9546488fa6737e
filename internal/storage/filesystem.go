package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	metaDir            = ".meta"
	defaultContentType = "application/octet-stream"
)

// Filesystem stores blobs as files under a base directory, keys mapping
// directly to relative file paths. Content type is kept in a sidecar file
// under .meta inside the base directory.
type Filesystem struct {
	basePath string
	logger   *slog.Logger
}

var _ Storage = (*Filesystem)(nil)

type fileMeta struct {
	ContentType string `json:"content_type"`
	ETag        string `json:"etag"`
}

// NewFilesystem resolves basePath to an absolute path and creates it.
func NewFilesystem(basePath string, logger *slog.Logger) (*Filesystem, error) {
	if basePath == "" {
		return nil, fmt.Errorf("blob base path required")
	}
	abs, err := filepath.Abs(basePath)
	if err != nil {
		return nil, fmt.Errorf("resolve blob base path: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(abs, metaDir), 0o755); err != nil {
		return nil, fmt.Errorf("create blob directory: %w", err)
	}
	return &Filesystem{basePath: abs, logger: logger.With("component", "storage")}, nil
}

// BasePath returns the absolute root directory.
func (f *Filesystem) BasePath() string { return f.basePath }

func (f *Filesystem) Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error) {
	p, err := f.fullPath(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}

	h := sha256.New()
	n, err := writeAtomic(p, io.TeeReader(r, h), opt.Size)
	if err != nil {
		return ObjectInfo{}, mapFSError(err)
	}

	meta := fileMeta{ContentType: opt.ContentType, ETag: hex.EncodeToString(h.Sum(nil))}
	if meta.ContentType == "" {
		meta.ContentType = defaultContentType
	}
	raw, err := json.Marshal(meta)
	if err != nil {
		return ObjectInfo{}, err
	}
	if _, err := writeAtomic(f.metaPath(key), bytes.NewReader(raw), int64(len(raw))); err != nil {
		return ObjectInfo{}, fmt.Errorf("write metadata: %w", mapFSError(err))
	}

	return ObjectInfo{
		Key:          key,
		Size:         n,
		ETag:         meta.ETag,
		ContentType:  meta.ContentType,
		LastModified: time.Now(),
	}, nil
}

func (f *Filesystem) Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error) {
	info, err := f.Stat(ctx, key)
	if err != nil {
		return nil, ObjectInfo{}, err
	}
	p, _ := f.fullPath(key)
	file, err := os.Open(p)
	if err != nil {
		return nil, ObjectInfo{}, mapFSError(err)
	}
	return file, info, nil
}

func (f *Filesystem) Stat(ctx context.Context, key string) (ObjectInfo, error) {
	p, err := f.fullPath(key)
	if err != nil {
		return ObjectInfo{}, err
	}
	if err := ctx.Err(); err != nil {
		return ObjectInfo{}, err
	}
	st, err := os.Stat(p)
	if err != nil {
		return ObjectInfo{}, mapFSError(err)
	}
	if st.IsDir() {
		return ObjectInfo{}, ErrNotFound
	}

	info := ObjectInfo{
		Key:          key,
		Size:         st.Size(),
		ContentType:  defaultContentType,
		LastModified: st.ModTime(),
	}
	if raw, err := os.ReadFile(f.metaPath(key)); err == nil {
		var meta fileMeta
		if json.Unmarshal(raw, &meta) == nil {
			info.ContentType = meta.ContentType
			info.ETag = meta.ETag
		}
	}
	return info, nil
}

func (f *Filesystem) Delete(ctx context.Context, key string) error {
	p, err := f.fullPath(key)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return mapFSError(err)
	}
	if err := os.Remove(f.metaPath(key)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		f.logger.Warn("failed to remove blob metadata", "key", key, "error", err)
	}

	f.pruneEmpty(filepath.Dir(p), f.basePath)
	f.pruneEmpty(filepath.Dir(f.metaPath(key)), filepath.Join(f.basePath, metaDir))
	return nil
}

func (f *Filesystem) fullPath(key string) (string, error) {
	if err := ValidateKey(key); err != nil {
		return "", err
	}
	full := filepath.Join(f.basePath, filepath.FromSlash(key))
	if !strings.HasPrefix(full, f.basePath+string(filepath.Separator)) {
		return "", ErrInvalidKey
	}
	return full, nil
}

func (f *Filesystem) metaPath(key string) string {
	return filepath.Join(f.basePath, metaDir, filepath.FromSlash(key)+".json")
}

// pruneEmpty removes dir when it is an empty subdirectory of root.
func (f *Filesystem) pruneEmpty(dir, root string) {
	if dir == root || !strings.HasPrefix(dir, root) {
		return
	}
	entries, err := os.ReadDir(dir)
	if err != nil || len(entries) > 0 {
		return
	}
	if err := os.Remove(dir); err != nil && !errors.Is(err, fs.ErrNotExist) {
		f.logger.Warn("failed to remove empty directory", "dir", dir, "error", err)
	}
}

// writeAtomic streams r into a temp file next to p and renames it over p, so
// readers see either the old or the new content. When want is not negative
// a different byte count aborts the write and leaves p untouched.
func writeAtomic(p string, r io.Reader, want int64) (int64, error) {
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	n, err := io.Copy(tmp, r)
	if err != nil {
		cleanup()
		return n, fmt.Errorf("write temp file: %w", err)
	}
	if want >= 0 && n != want {
		cleanup()
		return n, fmt.Errorf("%w: got %d bytes, want %d", ErrSizeMismatch, n, want)
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return n, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return n, fmt.Errorf("rename temp file: %w", err)
	}
	return n, nil
}

func mapFSError(err error) error {
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return ErrNotFound
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("%w: %v", ErrPermissionDenied, err)
	default:
		return err
	}
}
