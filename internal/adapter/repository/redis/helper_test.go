package redis

import (
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	redislib "github.com/redis/go-redis/v9"
)

// newTestCache returns a cache on a fresh miniredis instance. The server is
// exposed so tests can inspect keys and fast-forward TTLs.
func newTestCache(t *testing.T, ttl time.Duration) (*RateCache, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redislib.NewClient(&redislib.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRateCache(client, ttl), mr
}
