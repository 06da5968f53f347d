package ports

import (
	"context"
	"errors"
)

// ErrNotFound is returned by ObjectStore.Get and ObjectStore.Head for keys
// that do not exist. It signals a first run, not a failure.
var ErrNotFound = errors.New("object not found")

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Key         string
	Size        int64
	ContentType string
}

// ObjectStore persists the synced files and the run log.
type ObjectStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, body []byte, contentType string) error
	Head(ctx context.Context, key string) (ObjectInfo, error)
}
