package service

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"
	"github.com/cwrk-planet/presence-service/internal/store"
)

type recordedPublish struct {
	RoomID string
	State  domain.RoomState
}

type fakeBus struct {
	mu        sync.Mutex
	published []recordedPublish
	fail      error
}

func (b *fakeBus) Publish(_ context.Context, roomID string, st domain.RoomState) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.fail != nil {
		return b.fail
	}
	b.published = append(b.published, recordedPublish{RoomID: roomID, State: st})
	return nil
}

func (b *fakeBus) last(t *testing.T) recordedPublish {
	t.Helper()
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.published) == 0 {
		t.Fatalf("nothing published")
	}
	return b.published[len(b.published)-1]
}

func newTestService(t *testing.T) (*PresenceService, *fakeBus) {
	t.Helper()
	m := store.NewMemory(time.Hour)
	t.Cleanup(func() { _ = m.Close() })
	bus := &fakeBus{}
	return NewPresenceService(m, bus), bus
}

func TestPresence_JoinPublishesState(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	st, err := svc.Join(ctx, "page", "alice")
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !st.OwnerIs("alice") {
		t.Fatalf("owner = %v", st.Owner)
	}

	got := bus.last(t)
	if got.RoomID != "page" || !reflect.DeepEqual(got.State, st) {
		t.Fatalf("published %+v, want room=page state=%+v", got, st)
	}
}

func TestPresence_FullSession(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	_, _ = svc.Join(ctx, "page", "alice")
	_, _ = svc.Join(ctx, "page", "bob")

	st, err := svc.SetDirty(ctx, "page", true)
	if err != nil || !st.IsDirty {
		t.Fatalf("set dirty: st=%+v err=%v", st, err)
	}

	st, err = svc.ForceUnlock(ctx, "page", "bob")
	if err != nil || !st.OwnerIs("bob") {
		t.Fatalf("force unlock: st=%+v err=%v", st, err)
	}

	st, err = svc.Leave(ctx, "page", "bob")
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if !st.OwnerIs("alice") || !reflect.DeepEqual(st.Members, []string{"alice"}) {
		t.Fatalf("after bob left: %+v", st)
	}

	st, err = svc.Leave(ctx, "page", "alice")
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if !st.Empty() || st.IsDirty {
		t.Fatalf("room should be blank, got %+v", st)
	}

	// Every transition was broadcast, the last one with the blank state.
	if len(bus.published) != 6 {
		t.Fatalf("published %d states, want 6", len(bus.published))
	}
	if !bus.last(t).State.Empty() {
		t.Fatalf("final broadcast not empty: %+v", bus.last(t).State)
	}

	// The emptied room reads as the default state.
	snap, err := svc.Snapshot(ctx, "page")
	if err != nil || !snap.Empty() {
		t.Fatalf("snapshot: %+v err=%v", snap, err)
	}
}

func TestPresence_LeaveOfAbsentUserStillBroadcasts(t *testing.T) {
	svc, bus := newTestService(t)
	ctx := context.Background()

	_, _ = svc.Join(ctx, "page", "alice")

	st, err := svc.Leave(ctx, "page", "ghost")
	if err != nil {
		t.Fatalf("leave: %v", err)
	}
	if !st.OwnerIs("alice") || len(st.Members) != 1 {
		t.Fatalf("state changed by absent leave: %+v", st)
	}
	if len(bus.published) != 2 {
		t.Fatalf("published %d states, want 2", len(bus.published))
	}
}

func TestPresence_PublishFailureDoesNotFailOperation(t *testing.T) {
	svc, bus := newTestService(t)
	bus.fail = errors.New("bus down")

	st, err := svc.Join(context.Background(), "page", "alice")
	if err != nil {
		t.Fatalf("join should commit despite broadcast failure: %v", err)
	}
	if !st.OwnerIs("alice") {
		t.Fatalf("st = %+v", st)
	}

	// The store committed even though nothing went out.
	snap, err := svc.Snapshot(context.Background(), "page")
	if err != nil || !snap.OwnerIs("alice") {
		t.Fatalf("snapshot: %+v err=%v", snap, err)
	}
}

type failingStore struct{}

func (failingStore) Get(context.Context, string) (domain.RoomState, bool, error) {
	return domain.RoomState{}, false, errors.New("store down")
}

func (failingStore) Update(context.Context, string, store.UpdateFunc) (domain.RoomState, error) {
	return domain.RoomState{}, errors.New("store down")
}

func (failingStore) Close() error { return nil }

func TestPresence_StoreFailureSurfacesAndSkipsBroadcast(t *testing.T) {
	bus := &fakeBus{}
	svc := NewPresenceService(failingStore{}, bus)

	if _, err := svc.Join(context.Background(), "page", "alice"); err == nil {
		t.Fatalf("expected error from failing store")
	}
	if len(bus.published) != 0 {
		t.Fatalf("nothing should be broadcast on store failure")
	}
}
