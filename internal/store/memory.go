package store

import (
	"context"
	"sync"
	"time"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

type memoryEntry struct {
	state    domain.RoomState
	deadline time.Time
}

// Memory is an in-process Store for single-instance deployments and
// tests. A single mutex serializes all updates, which trivially
// satisfies the per-key atomicity contract. Expired entries are
// treated as absent on read and swept by a janitor goroutine.
type Memory struct {
	ttl time.Duration

	mu    sync.Mutex
	rooms map[string]memoryEntry

	stop     chan struct{}
	stopOnce sync.Once
}

func NewMemory(ttl time.Duration) *Memory {
	m := &Memory{
		ttl:   ttl,
		rooms: make(map[string]memoryEntry),
		stop:  make(chan struct{}),
	}
	go m.janitor()
	return m
}

func (m *Memory) Get(_ context.Context, roomID string) (domain.RoomState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.rooms[roomID]
	if !ok || time.Now().After(e.deadline) {
		return domain.RoomState{}, false, nil
	}
	return e.state, true, nil
}

func (m *Memory) Update(_ context.Context, roomID string, fn UpdateFunc) (domain.RoomState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cur := domain.RoomState{}
	if e, ok := m.rooms[roomID]; ok && !time.Now().After(e.deadline) {
		cur = e.state
	}

	next := fn(cur)
	if next.Empty() {
		delete(m.rooms, roomID)
		return next, nil
	}

	// Sliding lease: every write pushes the deadline out.
	m.rooms[roomID] = memoryEntry{state: next, deadline: time.Now().Add(m.ttl)}
	return next, nil
}

func (m *Memory) Close() error {
	m.stopOnce.Do(func() { close(m.stop) })
	return nil
}

func (m *Memory) janitor() {
	t := time.NewTicker(time.Minute)
	defer t.Stop()

	for {
		select {
		case <-m.stop:
			return
		case now := <-t.C:
			m.mu.Lock()
			for id, e := range m.rooms {
				if now.After(e.deadline) {
					delete(m.rooms, id)
				}
			}
			m.mu.Unlock()
		}
	}
}
