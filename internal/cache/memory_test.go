package cache

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryProviderExpiresEntries(t *testing.T) {
	now := time.Date(2024, 3, 13, 10, 0, 0, 0, time.UTC)
	c := NewMemoryProvider()
	c.now = func() time.Time { return now }
	ctx := context.Background()

	if err := c.Set(ctx, "customers:rossi", []byte("[1]"), time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, err := c.Get(ctx, "customers:rossi")
	if err != nil || string(got) != "[1]" {
		t.Fatalf("unexpected get result %q, %v", got, err)
	}

	now = now.Add(time.Minute)
	if _, err := c.Get(ctx, "customers:rossi"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after expiry, got %v", err)
	}
}

func TestMemoryProviderDel(t *testing.T) {
	c := NewMemoryProvider()
	ctx := context.Background()

	if err := c.Set(ctx, "k", []byte("a"), 0); err != nil {
		t.Fatalf("set: %v", err)
	}

	if err := c.Del(ctx, "k"); err != nil {
		t.Fatalf("del: %v", err)
	}
	if _, err := c.Get(ctx, "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss after delete, got %v", err)
	}
}

func TestMemoryProviderReturnsCopies(t *testing.T) {
	c := NewMemoryProvider()
	ctx := context.Background()
	buf := []byte("abc")
	_ = c.Set(ctx, "k", buf, 0)
	buf[0] = 'x'

	got, _ := c.Get(ctx, "k")
	got[1] = 'y'
	again, _ := c.Get(ctx, "k")
	if string(again) != "abc" {
		t.Fatalf("stored value mutated: %q", again)
	}
}

func TestNoopProviderAlwaysMisses(t *testing.T) {
	var p Provider = NoopProvider{}
	_ = p.Set(context.Background(), "k", []byte("v"), time.Minute)
	if _, err := p.Get(context.Background(), "k"); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("expected miss, got %v", err)
	}
}

func TestValkeyRequiresAddr(t *testing.T) {
	if _, err := NewValkeyProvider(ValkeyConfig{}); err == nil {
		t.Fatalf("expected error for empty addr")
	}
}

func TestNewSelectsBackend(t *testing.T) {
	p, err := New("", ValkeyConfig{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := p.(NoopProvider); !ok {
		t.Fatalf("expected noop provider, got %T", p)
	}
	p, _ = New(BackendMemory, ValkeyConfig{})
	if _, ok := p.(*MemoryProvider); !ok {
		t.Fatalf("expected memory provider, got %T", p)
	}
	if _, err := New("memcached", ValkeyConfig{}); err == nil {
		t.Fatalf("expected error for unknown backend")
	}
}
