package infra

import (
	"context"
	"sync"
	"testing"
	"time"

	"syriahub-gateway/middleware/ratelimit/domain"
)

func TestMemoryStore_HitStartsAndIncrementsWindow(t *testing.T) {
	s := NewMemoryStore()
	now := time.Unix(1_700_000_000, 0)

	e, err := s.Hit(context.Background(), "write:1.2.3.4", time.Minute, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if e.Count != 1 || !e.ResetAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected first entry: %+v", e)
	}

	e, _ = s.Hit(context.Background(), "write:1.2.3.4", time.Minute, now.Add(10*time.Second))
	if e.Count != 2 {
		t.Fatalf("expected count 2, got %d", e.Count)
	}
	if !e.ResetAt.Equal(now.Add(time.Minute)) {
		t.Fatalf("reset must stay fixed inside the window, got %v", e.ResetAt)
	}
}

func TestMemoryStore_HitRestartsExpiredWindow(t *testing.T) {
	s := NewMemoryStore()
	now := time.Unix(1_700_000_000, 0)
	s.Set("auth:u1", domain.Entry{Count: 42, ResetAt: now})

	e, _ := s.Hit(context.Background(), "auth:u1", 15*time.Minute, now)
	if e.Count != 1 {
		t.Fatalf("expected expired entry to restart at 1, got %d", e.Count)
	}
	if !e.ResetAt.Equal(now.Add(15 * time.Minute)) {
		t.Fatalf("unexpected reset: %v", e.ResetAt)
	}
}

func TestMemoryStore_CountIsNotClampedAfterLimit(t *testing.T) {
	s := NewMemoryStore()
	now := time.Unix(1_700_000_000, 0)

	var e domain.Entry
	for i := 0; i < 8; i++ {
		e, _ = s.Hit(context.Background(), "upload:ip", time.Minute, now)
	}
	if e.Count != 8 {
		t.Fatalf("expected count 8, got %d", e.Count)
	}
}

func TestMemoryStore_SweepRemovesOnlyExpired(t *testing.T) {
	s := NewMemoryStore()
	now := time.Unix(1_700_000_000, 0)
	s.Set("a", domain.Entry{Count: 1, ResetAt: now.Add(-time.Second)})
	s.Set("b", domain.Entry{Count: 1, ResetAt: now})
	s.Set("c", domain.Entry{Count: 3, ResetAt: now.Add(time.Second)})

	if n := s.Sweep(now); n != 2 {
		t.Fatalf("expected 2 removed, got %d", n)
	}
	if _, ok := s.Get("c"); !ok {
		t.Fatalf("live entry was removed")
	}
	if s.Len() != 1 || len(s.Keys()) != 1 {
		t.Fatalf("expected 1 entry left, got %d", s.Len())
	}

	s.Delete("c")
	if s.Len() != 0 {
		t.Fatalf("expected empty store after delete")
	}
}

func TestMemoryStore_ConcurrentHitsAreSerialized(t *testing.T) {
	s := NewMemoryStore()
	now := time.Unix(1_700_000_000, 0)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Hit(context.Background(), "read:ip", time.Minute, now)
		}()
	}
	wg.Wait()

	e, _ := s.Get("read:ip")
	if e.Count != 100 {
		t.Fatalf("expected 100 hits, got %d", e.Count)
	}
}
