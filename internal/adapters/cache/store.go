// Package cache stores serialized recommendations with a time to live.
package cache

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrMiss is returned by Get when the key is absent or expired.
	ErrMiss = errors.New("cache miss")
	// ErrUnavailable is returned when the backing store cannot be reached.
	ErrUnavailable = errors.New("cache unavailable")
)

// Store is a key/value store with per-entry expiry. Single-key operations
// are atomic.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

const keyPrefix = "recommendation:"

// Key builds the cache key of a next-step recommendation. Scoped variants
// append the course and path ids they were computed for. Ids are escaped so
// a ':' inside one cannot forge another scope's key.
func Key(userID, courseID, pathID string) string {
	var b strings.Builder
	b.WriteString(keyPrefix)
	b.WriteString(url.QueryEscape(userID))
	if courseID != "" {
		b.WriteString(":course:")
		b.WriteString(url.QueryEscape(courseID))
	}
	if pathID != "" {
		b.WriteString(":path:")
		b.WriteString(url.QueryEscape(pathID))
	}
	b.WriteString(":next")
	return b.String()
}
