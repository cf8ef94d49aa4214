package cache

import (
	"context"
	"os"
	"testing"

	"github.com/lorenzotomasdiez/agora/internal/debate"
)

func TestDisabledCacheIsNoop(t *testing.T) {
	ctx := context.Background()
	for _, c := range []*DebateCache{New(ctx, ""), New(ctx, "not a url"), nil} {
		if c.Enabled() {
			t.Fatal("cache should be disabled")
		}
		c.PutDebate(ctx, &debate.Debate{ID: "x"})
		if _, ok := c.GetDebate(ctx, "x"); ok {
			t.Error("disabled cache returned a hit")
		}
		if err := c.Invalidate(ctx, "x"); err != nil {
			t.Errorf("Invalidate: %v", err)
		}
		if err := c.Close(); err != nil {
			t.Errorf("Close: %v", err)
		}
	}
}

func TestUnreachableRedisDisablesCache(t *testing.T) {
	c := New(context.Background(), "redis://127.0.0.1:1/0")
	if c.Enabled() {
		t.Fatal("unreachable redis should disable the cache")
	}
}

func TestDebateKey(t *testing.T) {
	if got := debateKey("65f1a2b3c4d5e6f7a8b9c0d1"); got != "agora:debate:65f1a2b3c4d5e6f7a8b9c0d1" {
		t.Errorf("key = %q", got)
	}
}

func TestRoundTripAgainstRedis(t *testing.T) {
	url := os.Getenv("AGORA_TEST_REDIS_URL")
	if url == "" {
		t.Skip("AGORA_TEST_REDIS_URL not set")
	}
	ctx := context.Background()
	c := New(ctx, url)
	if !c.Enabled() {
		t.Fatalf("redis at %s unreachable", url)
	}
	defer c.Close()

	d := &debate.Debate{ID: "65f1a2b3c4d5e6f7a8b9c0d1", Title: "cached", Duration: 60}
	c.PutDebate(ctx, d)
	got, ok := c.GetDebate(ctx, d.ID)
	if !ok || got.Title != "cached" {
		t.Fatalf("GetDebate = %+v, %v", got, ok)
	}
	if err := c.Invalidate(ctx, d.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := c.GetDebate(ctx, d.ID); ok {
		t.Error("invalidated debate still cached")
	}
}
