// Package storage holds document content (blobs) keyed by document id.
// Backends: a local filesystem directory and S3-compatible object storage.
package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"
	"time"
)

var (
	ErrNotFound         = errors.New("object not found")
	ErrInvalidKey       = errors.New("invalid object key")
	ErrPermissionDenied = errors.New("permission denied")
	ErrSizeMismatch     = errors.New("content size mismatch")
)

// PutObjectOptions define optional parameters for uploading objects.
// Size should be the exact number of bytes if known; if unknown, set to -1.
type PutObjectOptions struct {
	Size        int64
	ContentType string
}

// ObjectInfo contains basic information about a stored object.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	ContentType  string
	LastModified time.Time
}

// Storage is the blob store used for document content.
// Implementations are safe for concurrent use and stream content without
// buffering whole objects in memory.
type Storage interface {
	// Put creates or replaces the object under key.
	Put(ctx context.Context, key string, r io.Reader, opt PutObjectOptions) (ObjectInfo, error)
	// Get returns the object's content and info. The caller closes the reader.
	Get(ctx context.Context, key string) (io.ReadCloser, ObjectInfo, error)
	// Stat returns object info without reading content.
	Stat(ctx context.Context, key string) (ObjectInfo, error)
	// Delete removes an object. Deleting a missing object is not an error.
	Delete(ctx context.Context, key string) error
}

// ValidateKey rejects empty keys, absolute keys and keys with a segment that
// is empty or starts with a dot. Dot-prefixed names are reserved for
// backend bookkeeping.
func ValidateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return ErrInvalidKey
	}
	if path.Clean(key) != key {
		return ErrInvalidKey
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || strings.HasPrefix(seg, ".") {
			return ErrInvalidKey
		}
	}
	return nil
}
