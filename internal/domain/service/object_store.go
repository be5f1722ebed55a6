package service

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound is returned when the requested key does not exist.
var ErrObjectNotFound = errors.New("object not found")

// PutOptions controls how an object is written to the store.
type PutOptions struct {
	ContentType    string
	AllowOverwrite bool
}

// ObjectInfo describes a stored object returned by List.
type ObjectInfo struct {
	Key        string
	Size       int64
	UploadedAt time.Time
}

// ObjectStore defines the interface to the blob object store the catalog
// artifact lives in. Implementations are expected to serve Get with live
// (cache-busted) reads so read-after-write verification is meaningful.
type ObjectStore interface {
	// Put writes bytes under key and returns the public URL of the object.
	Put(ctx context.Context, key string, data []byte, opts PutOptions) (string, error)

	// Get reads the full object. Implementations return ErrObjectNotFound
	// (wrapped) when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)

	// List enumerates objects under the given key prefix.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Exists reports whether an object is present without fetching it.
	Exists(ctx context.Context, key string) (bool, error)
}
