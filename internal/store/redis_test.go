package store

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

// Integration tests; need a running redis. Set REDIS_ADDR to enable.
func newTestRedis(t *testing.T, ttl time.Duration) *Redis {
	t.Helper()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}

	r, err := NewRedis(context.Background(), addr, 0, ttl)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func TestRedis_UpdateRoundTrip(t *testing.T) {
	r := newTestRedis(t, time.Minute)
	ctx := context.Background()
	room := fmt.Sprintf("roundtrip-%d", time.Now().UnixNano())

	st, err := r.Update(ctx, room, func(cur domain.RoomState) domain.RoomState {
		return cur.Join("alice").SetDirty(true)
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !st.OwnerIs("alice") || !st.IsDirty {
		t.Fatalf("st = %+v", st)
	}

	got, ok, err := r.Get(ctx, room)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if !got.OwnerIs("alice") || !got.IsDirty {
		t.Fatalf("got %+v", got)
	}

	// Empty the room; the key must disappear.
	if _, err := r.Update(ctx, room, func(cur domain.RoomState) domain.RoomState {
		return cur.Leave("alice")
	}); err != nil {
		t.Fatalf("leave: %v", err)
	}
	if _, ok, _ := r.Get(ctx, room); ok {
		t.Fatalf("empty room should read as absent")
	}
}

func TestRedis_ConcurrentJoinsLoseNoUpdates(t *testing.T) {
	r := newTestRedis(t, time.Minute)
	ctx := context.Background()
	room := fmt.Sprintf("concurrent-%d", time.Now().UnixNano())

	const n = 16
	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		user := fmt.Sprintf("user-%02d", i)
		go func() {
			defer wg.Done()
			if _, err := r.Update(ctx, room, func(cur domain.RoomState) domain.RoomState {
				return cur.Join(user)
			}); err != nil {
				t.Errorf("join %s: %v", user, err)
			}
		}()
	}
	wg.Wait()

	st, ok, err := r.Get(ctx, room)
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if len(st.Members) != n {
		t.Fatalf("lost updates: %d members, want %d", len(st.Members), n)
	}

	// Cleanup.
	for i := 0; i < n; i++ {
		user := fmt.Sprintf("user-%02d", i)
		_, _ = r.Update(ctx, room, func(cur domain.RoomState) domain.RoomState { return cur.Leave(user) })
	}
}
