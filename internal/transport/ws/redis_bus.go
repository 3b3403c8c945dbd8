package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

const busPrefix = "presence:events:"

type busEnvelope struct {
	RoomID string           `json:"room_id"`
	State  domain.RoomState `json:"state"`
}

// RedisBus fans room-state updates out across service instances via
// redis pub/sub. Local delivery also goes through the subscription
// (redis delivers published messages back to the publishing client),
// so each update reaches every local connection exactly once.
type RedisBus struct {
	rdb *redis.Client
	hub *Hub
}

func NewRedisBus(ctx context.Context, addr string, db int, hub *Hub) (*RedisBus, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisBus{rdb: rdb, hub: hub}, nil
}

func (b *RedisBus) Publish(ctx context.Context, roomID string, st domain.RoomState) error {
	raw, err := json.Marshal(busEnvelope{RoomID: roomID, State: st})
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, busPrefix+roomID, raw).Err()
}

// Run subscribes to all rooms' channels and forwards each update to
// the local hub. Blocks until ctx is cancelled.
func (b *RedisBus) Run(ctx context.Context) {
	pubsub := b.rdb.PSubscribe(ctx, busPrefix+"*")
	defer func() { _ = pubsub.Close() }()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var env busEnvelope
			if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
				slog.Warn("bus decode failed", "channel", msg.Channel, "err", err)
				continue
			}
			if env.RoomID == "" {
				env.RoomID = strings.TrimPrefix(msg.Channel, busPrefix)
			}
			b.hub.Broadcast(env.RoomID, env.State)
		}
	}
}

func (b *RedisBus) Close() error {
	return b.rdb.Close()
}
