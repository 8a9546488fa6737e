// Package repository contains data access layer abstractions for document
// records. Implementations live in subpackages (csvfile, postgres,
// redisstore) and share the error values below.
package repository

import "errors"

var (
	// ErrDuplicateID is returned by Insert when the document id is taken.
	ErrDuplicateID = errors.New("document id already exists")
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("document not found")
)
