package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cwrk-planet/presence-service/internal/domain"
)

const updateRetries = 32

// Redis is a Store backed by a shared redis instance, for
// multi-instance deployments. Atomicity is a WATCH-based
// compare-and-swap: the transaction aborts when another writer touches
// the key between read and write, and the update is retried.
type Redis struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects and verifies connectivity before returning.
func NewRedis(ctx context.Context, addr string, db int, ttl time.Duration) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr, DB: db})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Redis{rdb: rdb, ttl: ttl}, nil
}

func roomKey(roomID string) string { return "presence:room:" + roomID }

func (r *Redis) Get(ctx context.Context, roomID string) (domain.RoomState, bool, error) {
	raw, err := r.rdb.Get(ctx, roomKey(roomID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.RoomState{}, false, nil
	}
	if err != nil {
		return domain.RoomState{}, false, fmt.Errorf("redis get %s: %w", roomID, err)
	}

	var st domain.RoomState
	if err := json.Unmarshal(raw, &st); err != nil {
		return domain.RoomState{}, false, fmt.Errorf("redis decode %s: %w", roomID, err)
	}
	return st, true, nil
}

func (r *Redis) Update(ctx context.Context, roomID string, fn UpdateFunc) (domain.RoomState, error) {
	key := roomKey(roomID)

	var result domain.RoomState
	txn := func(tx *redis.Tx) error {
		cur := domain.RoomState{}
		raw, err := tx.Get(ctx, key).Bytes()
		if err != nil && !errors.Is(err, redis.Nil) {
			return err
		}
		if err == nil {
			if err := json.Unmarshal(raw, &cur); err != nil {
				return err
			}
		}

		next := fn(cur)
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if next.Empty() {
				pipe.Del(ctx, key)
				return nil
			}
			buf, err := json.Marshal(next)
			if err != nil {
				return err
			}
			// SET with EX refreshes the lease on every write.
			pipe.Set(ctx, key, buf, r.ttl)
			return nil
		})
		if err != nil {
			return err
		}
		result = next
		return nil
	}

	for i := 0; i < updateRetries; i++ {
		err := r.rdb.Watch(ctx, txn, key)
		if errors.Is(err, redis.TxFailedErr) {
			continue // contended, reread and retry
		}
		if err != nil {
			return domain.RoomState{}, fmt.Errorf("redis update %s: %w", roomID, err)
		}
		return result, nil
	}
	return domain.RoomState{}, fmt.Errorf("redis update %s: %w", roomID, ErrUpdateConflict)
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
