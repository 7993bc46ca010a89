// Package storage provides the store for built documentation files and
// static assets served by docserve.
package storage

import (
	"context"
	"errors"
	"time"
)

// Store provides access to built documentation files by their path within
// the documentation tree (e.g. "rustdoc/serde/1.0.0/serde/index.html").
type Store interface {
	// Get retrieves a file by path.
	// Returns *PathNotFoundError if no file exists at the path.
	Get(ctx context.Context, path string) (*File, error)

	// Exists reports whether a file exists at the path.
	Exists(ctx context.Context, path string) (bool, error)

	// Put stores a file at the path, creating parent directories as needed.
	// Used by the sync job; request handlers only read.
	Put(ctx context.Context, path string, content []byte) error

	// Close releases any resources held by the store.
	Close() error
}

// File is a stored documentation file with its metadata.
type File struct {
	// Path is the path within the documentation tree.
	Path string

	// MimeType is derived from the file extension.
	MimeType string

	// Content is the file body.
	Content []byte

	// ModTime is the last modification time.
	ModTime time.Time
}

// PathNotFoundError is returned when a requested path does not exist.
// It is the single "no such file" signal consumed by the web error
// classifier; everything else a store returns is an internal fault.
type PathNotFoundError struct {
	Path string
}

func (e *PathNotFoundError) Error() string {
	return "path not found: " + e.Path
}

// IsPathNotFound reports whether err is (or wraps) a PathNotFoundError.
func IsPathNotFound(err error) bool {
	var pnf *PathNotFoundError
	return errors.As(err, &pnf)
}
