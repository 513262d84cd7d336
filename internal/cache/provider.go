package cache

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Provider defines the cache operations used for directory lookups.
type Provider interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
}

// ErrCacheMiss signals that a cache key was not found.
var ErrCacheMiss = errors.New("cache miss")

// NoopProvider implements Provider but never stores data.
type NoopProvider struct{}

// Get always returns ErrCacheMiss.
func (NoopProvider) Get(context.Context, string) ([]byte, error) {
	return nil, ErrCacheMiss
}

// Set discards the value and returns nil.
func (NoopProvider) Set(context.Context, string, []byte, time.Duration) error {
	return nil
}

// Del is a no-op for the noop cache.
func (NoopProvider) Del(context.Context, string) error { return nil }

// Close is a no-op.
func (NoopProvider) Close() error { return nil }

// Backend names accepted by New.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendValkey = "valkey"
)

// New builds the Provider named by backend. An empty backend means none.
func New(backend string, valkey ValkeyConfig) (Provider, error) {
	switch backend {
	case "", BackendNone:
		return NoopProvider{}, nil
	case BackendMemory:
		return NewMemoryProvider(), nil
	case BackendValkey:
		return NewValkeyProvider(valkey)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", backend)
	}
}
