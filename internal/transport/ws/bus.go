package ws

import (
	"context"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

// LocalBus delivers room state straight to the in-process hub. Enough
// for single-instance deployments; multi-instance deployments use
// RedisBus so every instance's hub sees every update.
type LocalBus struct {
	hub *Hub
}

func NewLocalBus(hub *Hub) *LocalBus {
	return &LocalBus{hub: hub}
}

func (b *LocalBus) Publish(_ context.Context, roomID string, st domain.RoomState) error {
	b.hub.Broadcast(roomID, st)
	return nil
}
