package storage

import (
	"context"
	"errors"
	"time"
)

// ErrUnavailable is returned when the underlying medium cannot be read or written.
var ErrUnavailable = errors.New("storage backend unavailable")

// ErrClosed is returned by operations on a closed backend.
var ErrClosed = errors.New("storage backend closed")

// Backend persists string values under string keys.
//
// Implementations must be safe for concurrent use. Delete of a missing key is not an
// error. Put writes all entries together as far as the medium allows; ttl <= 0 means
// the entries do not expire.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, entries map[string]string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
