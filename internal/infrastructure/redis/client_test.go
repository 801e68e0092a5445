package redis

import (
	"context"
	"fmt"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
)

func TestNewClientSuccess(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	ctx := context.Background()
	client, err := NewClient(ctx, fmt.Sprintf("redis://%s/0", s.Addr()))
	if err != nil {
		t.Fatalf("expected client, got error: %v", err)
	}
	defer client.Close()

	if err := client.Set(ctx, "fx:EUR:latest", "1.1", 0).Err(); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if client.Options().PoolSize != 2 {
		t.Fatalf("expected pool size 2, got %d", client.Options().PoolSize)
	}
}

func TestNewClientErrors(t *testing.T) {
	s := miniredis.RunT(t)
	down := fmt.Sprintf("redis://%s", s.Addr())
	s.Close()

	tests := map[string]string{
		"empty":       "",
		"invalid url": "://bad-url",
		"server down": down,
	}

	for name, url := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := NewClient(context.Background(), url); err == nil {
				t.Fatalf("expected error for %q", url)
			}
		})
	}
}
