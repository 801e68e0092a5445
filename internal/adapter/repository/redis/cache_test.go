package redis

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestRateCachePutAndGet(t *testing.T) {
	cache, mr := newTestCache(t, 0)
	ctx := context.Background()

	if err := cache.Put(ctx, "EUR:2024-01-02", decimal.RequireFromString("1.0956")); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	rate, ok, err := cache.Get(ctx, "EUR:2024-01-02")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !ok || !rate.Equal(decimal.RequireFromString("1.0956")) {
		t.Fatalf("expected 1.0956, got %s (ok=%v)", rate, ok)
	}

	if got, _ := mr.Get("fx:EUR:2024-01-02"); got != "1.0956" {
		t.Fatalf("unexpected stored value %q", got)
	}
	if mr.TTL("fx:EUR:2024-01-02") != 0 {
		t.Fatalf("expected no expiry")
	}
}

func TestRateCacheMiss(t *testing.T) {
	cache, _ := newTestCache(t, 0)

	_, ok, err := cache.Get(context.Background(), "GBP:latest")
	if err != nil {
		t.Fatalf("expected miss without error, got %v", err)
	}
	if ok {
		t.Fatalf("expected miss")
	}
}

func TestRateCacheTTL(t *testing.T) {
	cache, mr := newTestCache(t, time.Hour)
	ctx := context.Background()

	if err := cache.Put(ctx, "GBP:latest", decimal.NewFromInt(1)); err != nil {
		t.Fatalf("put failed: %v", err)
	}

	mr.FastForward(2 * time.Hour)

	_, ok, err := cache.Get(ctx, "GBP:latest")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if ok {
		t.Fatalf("expected expired key to miss")
	}
}

func TestRateCacheCorruptValue(t *testing.T) {
	cache, mr := newTestCache(t, 0)

	if err := mr.Set("fx:EUR:latest", "not-a-number"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if _, _, err := cache.Get(context.Background(), "EUR:latest"); err == nil {
		t.Fatalf("expected error for corrupt value")
	}
}

func TestRateCacheUnavailable(t *testing.T) {
	cache, mr := newTestCache(t, 0)
	mr.Close()

	if _, _, err := cache.Get(context.Background(), "EUR:latest"); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}
