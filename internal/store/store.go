// Package store abstracts the remote object store datasets are
// mirrored from.
package store

import (
	"context"
	"errors"
	"io"
)

// Object is one entry of a remote listing.
type Object struct {
	Key  string
	Size int64
}

// ErrNotFound marks a key that does not exist in the remote store.
// Callers treat it as permanent rather than retrying.
var ErrNotFound = errors.New("object not found")

// Store is a read-only view of a remote object store.
type Store interface {
	// List returns all objects whose key starts with prefix, in
	// listing order.
	List(ctx context.Context, prefix string) ([]Object, error)

	// Get opens an object for reading and reports its total size.
	Get(ctx context.Context, key string) (io.ReadCloser, int64, error)
}
