package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

func setupTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	if err := client.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	return client
}

func TestLimiterWindowCap(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	limiter := New(client)
	id := fmt.Sprintf("user-%s", uuid.NewString())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allow(ctx, id, "failed_payment", time.Hour, 5)
		if err != nil {
			t.Fatalf("allow failed: %v", err)
		}
		if !allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
		if err := limiter.Record(ctx, id, "failed_payment", time.Hour); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	allowed, err := limiter.Allow(ctx, id, "failed_payment", time.Hour, 5)
	if err != nil {
		t.Fatalf("allow failed: %v", err)
	}
	if allowed {
		t.Fatal("6th attempt inside the window should be rejected")
	}
}

func TestLimiterWindowSlides(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	limiter := New(client)
	id := fmt.Sprintf("user-%s", uuid.NewString())
	ctx := context.Background()

	// Record against a window so short the entries age out immediately.
	for i := 0; i < 5; i++ {
		if err := limiter.Record(ctx, id, "failed_payment", 50*time.Millisecond); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}
	time.Sleep(80 * time.Millisecond)

	allowed, err := limiter.Allow(ctx, id, "failed_payment", 50*time.Millisecond, 5)
	if err != nil {
		t.Fatalf("allow failed: %v", err)
	}
	if !allowed {
		t.Fatal("expected entries outside the window to be discarded")
	}
}

func TestLimiterActionsAreIndependent(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	limiter := New(client)
	id := fmt.Sprintf("user-%s", uuid.NewString())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := limiter.Record(ctx, id, "failed_payment", time.Hour); err != nil {
			t.Fatalf("record failed: %v", err)
		}
	}

	allowed, err := limiter.Allow(ctx, id, "contact_form", time.Hour, 5)
	if err != nil {
		t.Fatalf("allow failed: %v", err)
	}
	if !allowed {
		t.Fatal("different action must not share the counter")
	}
}

func TestLimiterDegradesOpenWithoutRedis(t *testing.T) {
	limiter := New(nil)

	allowed, err := limiter.Allow(context.Background(), "user", "failed_payment", time.Hour, 5)
	if err != nil {
		t.Fatalf("allow failed: %v", err)
	}
	if !allowed {
		t.Fatal("nil redis client should degrade open")
	}
	if err := limiter.Record(context.Background(), "user", "failed_payment", time.Hour); err != nil {
		t.Fatalf("record failed: %v", err)
	}
}
