package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cwrk-planet/presence-service/internal/domain"
	"github.com/cwrk-planet/presence-service/internal/store"
)

// Broadcaster fans a committed room state out to every connection
// subscribed to the room, across all service instances. Delivery is
// best-effort and never rolls back store state.
type Broadcaster interface {
	Publish(ctx context.Context, roomID string, state domain.RoomState) error
}

// PresenceService drives the presence protocol: each operation applies
// one arbiter transition through the store's atomic update and then
// publishes the committed state. Store failures are returned to the
// caller (the connection must be closed rather than proceed on stale
// state); publish failures are only logged.
type PresenceService struct {
	store store.Store
	bus   Broadcaster
}

func NewPresenceService(st store.Store, bus Broadcaster) *PresenceService {
	return &PresenceService{store: st, bus: bus}
}

func (s *PresenceService) Join(ctx context.Context, roomID, userID string) (domain.RoomState, error) {
	st, err := s.store.Update(ctx, roomID, func(cur domain.RoomState) domain.RoomState {
		return cur.Join(userID)
	})
	if err != nil {
		return domain.RoomState{}, fmt.Errorf("join room %s: %w", roomID, err)
	}

	s.publish(ctx, roomID, st)
	return st, nil
}

func (s *PresenceService) Leave(ctx context.Context, roomID, userID string) (domain.RoomState, error) {
	var present bool
	st, err := s.store.Update(ctx, roomID, func(cur domain.RoomState) domain.RoomState {
		next := cur.Leave(userID)
		present = len(next.Members) != len(cur.Members)
		return next
	})
	if err != nil {
		return domain.RoomState{}, fmt.Errorf("leave room %s: %w", roomID, err)
	}
	if !present {
		// Duplicate or late disconnect event; harmless but worth a trace.
		slog.Warn("leave for absent member", "room", roomID, "user", userID)
	}

	s.publish(ctx, roomID, st)
	return st, nil
}

func (s *PresenceService) SetDirty(ctx context.Context, roomID string, dirty bool) (domain.RoomState, error) {
	st, err := s.store.Update(ctx, roomID, func(cur domain.RoomState) domain.RoomState {
		return cur.SetDirty(dirty)
	})
	if err != nil {
		return domain.RoomState{}, fmt.Errorf("set dirty on room %s: %w", roomID, err)
	}

	s.publish(ctx, roomID, st)
	return st, nil
}

func (s *PresenceService) ForceUnlock(ctx context.Context, roomID, userID string) (domain.RoomState, error) {
	st, err := s.store.Update(ctx, roomID, func(cur domain.RoomState) domain.RoomState {
		return cur.ForceUnlock(userID)
	})
	if err != nil {
		return domain.RoomState{}, fmt.Errorf("force unlock room %s: %w", roomID, err)
	}

	s.publish(ctx, roomID, st)
	return st, nil
}

// Snapshot returns the current room state without mutating it. A
// missing room reads as the default empty state.
func (s *PresenceService) Snapshot(ctx context.Context, roomID string) (domain.RoomState, error) {
	st, _, err := s.store.Get(ctx, roomID)
	if err != nil {
		return domain.RoomState{}, fmt.Errorf("snapshot room %s: %w", roomID, err)
	}
	return st, nil
}

func (s *PresenceService) publish(ctx context.Context, roomID string, st domain.RoomState) {
	if err := s.bus.Publish(ctx, roomID, st); err != nil {
		slog.Warn("presence broadcast failed", "room", roomID, "err", err)
	}
}
