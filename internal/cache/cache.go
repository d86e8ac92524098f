// Package cache provides the fingerprint cache: a key/value store of immutable
// result payloads with a fixed time-to-live. Keys are the ordered input
// parameters of the call whose result is stored.
package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// DefaultTTL is how long a stored result stays valid.
const DefaultTTL = time.Hour

// Cache is the contract every backend (in-memory, Redis) satisfies.
//
// Check-then-set is not atomic: two callers missing on the same key may both
// compute the value, and the last Set wins.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Key builds a fingerprint from a namespace and the ordered call parameters.
// Parts are separated so that ("1", "23") and ("12", "3") never collide.
func Key(namespace string, parts ...any) string {
	var b strings.Builder
	b.WriteString(namespace)
	for _, p := range parts {
		b.WriteByte(':')
		switch v := p.(type) {
		case float64:
			b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
		case int:
			b.WriteString(strconv.Itoa(v))
		case string:
			b.WriteString(v)
		default:
			fmt.Fprint(&b, v)
		}
	}
	return b.String()
}

// Namespace returns the namespace component of a key built by Key.
func Namespace(key string) string {
	if i := strings.IndexByte(key, ':'); i >= 0 {
		return key[:i]
	}
	return key
}

// GetJSON looks up key and decodes the stored payload into a T.
func GetJSON[T any](ctx context.Context, c Cache, key string) (T, bool, error) {
	var out T
	raw, ok, err := c.Get(ctx, key)
	if err != nil || !ok {
		return out, false, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("decode cached %s: %w", key, err)
	}
	return out, true, nil
}

// SetJSON encodes v and stores it under key.
func SetJSON(ctx context.Context, c Cache, key string, v any, ttl time.Duration) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return c.Set(ctx, key, raw, ttl)
}
