// Package storage persists uploaded binaries, keyed by the file_url path.
package storage

import (
	"context"
	"io"
)

// Storage stores and retrieves uploaded binaries. Keys are opaque relative
// paths generated at upload time (e.g. "uploads/<uuid>.pdf").
type Storage interface {
	// Save writes the object; an existing object under the same key is
	// overwritten.
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// Open returns a reader over the object.
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	// Remove deletes the object. Removing a missing object is not an error.
	Remove(ctx context.Context, key string) error
}
