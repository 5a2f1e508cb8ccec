package cache

import (
	"context"
	"regexp"
	"time"
)

// Store is a byte-oriented key-value backend with per-entry expiry.
type Store interface {
	Name() string
	// Get returns ok=false for absent or expired keys.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	// Set overwrites key. A non-positive ttl leaves the key absent for readers.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePattern(ctx context.Context, re *regexp.Regexp) (int, error)
	Clear(ctx context.Context) (int, error)
	Len(ctx context.Context) (int, error)
}
