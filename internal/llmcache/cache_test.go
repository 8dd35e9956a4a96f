package llmcache_test

import (
	"context"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/hazyhaar/domloop/internal/llmcache"
)

func open(t *testing.T) *llmcache.Cache {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.db")
	c, err := llmcache.Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func TestPutGet(t *testing.T) {
	c := open(t)
	ctx := context.Background()

	if err := c.Put(ctx, "req-1", []byte(`{"ok":true}`), 1000); err != nil {
		t.Fatalf("Put: %v", err)
	}

	payload, ok, err := c.Get("req-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("expected hit")
	}
	if string(payload) != `{"ok":true}` {
		t.Errorf("payload = %q", payload)
	}
}

func TestGetMiss(t *testing.T) {
	c := open(t)
	_, ok, err := c.Get("nope")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok {
		t.Error("expected miss")
	}
}

func TestPutOverwrites(t *testing.T) {
	c := open(t)
	ctx := context.Background()
	c.Put(ctx, "req-1", []byte("first"), 1)
	c.Put(ctx, "req-1", []byte("second"), 2)

	payload, _, _ := c.Get("req-1")
	if string(payload) != "second" {
		t.Errorf("payload = %q, want second", payload)
	}
}

func TestEvict(t *testing.T) {
	c := open(t)
	ctx := context.Background()
	c.Put(ctx, "req-1", []byte("x"), 1)

	if err := c.Evict(ctx, "req-1"); err != nil {
		t.Fatalf("Evict: %v", err)
	}

	_, ok, _ := c.Get("req-1")
	if ok {
		t.Error("expected entry removed after evict")
	}
}

func TestEvictMissingIsNotError(t *testing.T) {
	c := open(t)
	if err := c.Evict(context.Background(), "never-existed"); err != nil {
		t.Errorf("Evict of missing key returned error: %v", err)
	}
}
