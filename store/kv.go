package store

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by KV.Read for keys that were never
// written or have been cleared.
var ErrKeyNotFound = errors.New("key not found")

// KV is the persistence port for guest state: what the browser's local
// storage was in the original storefront, made explicit so it can be
// backed by Redis in production and by memory in tests.
type KV interface {
	Read(ctx context.Context, key string) ([]byte, error)
	Write(ctx context.Context, key string, value []byte) error
	Clear(ctx context.Context, key string) error
}
