package core

import (
	"context"
	"io"

	"github.com/pkg/errors"
)

var ErrObjectNotFound = errors.New("object not found")

// ObjectStore keeps binary blobs (rendered cards) under string keys.
type ObjectStore interface {
	Put(ctx context.Context, key string, r io.Reader, contentType string) error
	// Get returns ErrObjectNotFound when key does not exist.
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	URL(key string) string
}
