// Package cache provides byte-valued caches with expiry: an in-process map
// and a Redis-backed implementation sharing one interface.
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// DefaultTTL applies when a cache is created with a zero TTL.
const DefaultTTL = 15 * time.Minute

// ErrMiss is returned by Get when the key is absent or expired.
var ErrMiss = errors.New("cache miss")

// Cache stores opaque values under string keys.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	// DeletePrefix removes every key starting with prefix.
	DeletePrefix(ctx context.Context, prefix string) error
	Close() error
}

// Backend names accepted by New.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Options configures New.
type Options struct {
	Backend   string
	RedisAddr string
	KeyPrefix string
	TTL       time.Duration
}

// New builds the cache selected by opts.Backend. It returns nil, nil for
// BackendNone or an empty backend.
func New(ctx context.Context, opts Options) (Cache, error) {
	switch opts.Backend {
	case "", BackendNone:
		return nil, nil
	case BackendMemory:
		return NewMemory(opts.TTL), nil
	case BackendRedis:
		r, err := NewRedis(ctx, opts.RedisAddr, opts.KeyPrefix, opts.TTL)
		if err != nil {
			return nil, err
		}
		return r, nil
	default:
		return nil, fmt.Errorf("unknown cache backend %q (want none, memory, or redis)", opts.Backend)
	}
}
