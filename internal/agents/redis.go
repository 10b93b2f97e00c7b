package agents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"voice-agent-dashboard/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisIdempotency stores create request keys in Redis for ttl.
type RedisIdempotency struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisIdempotency(rdb *redis.Client, ttl time.Duration) *RedisIdempotency {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisIdempotency{rdb: rdb, ttl: ttl}
}

func idempotencyKey(ownerUserID, key string) string {
	return fmt.Sprintf("agents:create:%s:%s", ownerUserID, key)
}

// pendingTTL bounds how long a reservation survives a crashed create.
const pendingTTL = 2 * time.Minute

const pendingValue = "pending"

func (r *RedisIdempotency) Reserve(ctx context.Context, ownerUserID, key string) (bool, string, error) {
	k := idempotencyKey(ownerUserID, key)
	ok, err := r.rdb.SetNX(ctx, k, pendingValue, pendingTTL).Result()
	if err != nil {
		return false, "", err
	}
	if ok {
		return true, "", nil
	}
	id, err := r.rdb.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) || id == pendingValue {
		return false, "", nil
	}
	if err != nil {
		return false, "", err
	}
	return false, id, nil
}

// Complete replaces the reservation with the record id for the full ttl.
func (r *RedisIdempotency) Complete(ctx context.Context, ownerUserID, key, recordID string) error {
	return r.rdb.Set(ctx, idempotencyKey(ownerUserID, key), recordID, r.ttl).Err()
}

func (r *RedisIdempotency) Release(ctx context.Context, ownerUserID, key string) error {
	return r.rdb.Del(ctx, idempotencyKey(ownerUserID, key)).Err()
}

// RedisThrottle allows one test call per agent per cooldown window. The slot
// is never released early; it expires with the window.
type RedisThrottle struct {
	rdb      *redis.Client
	cooldown time.Duration
}

func NewRedisThrottle(rdb *redis.Client, cooldown time.Duration) *RedisThrottle {
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	return &RedisThrottle{rdb: rdb, cooldown: cooldown}
}

func throttleKey(agentID string) string {
	return "agents:test_call:" + agentID
}

func (t *RedisThrottle) Acquire(ctx context.Context, agentID string) (bool, error) {
	return utils.AcquireConcurrencyCap(ctx, t.rdb, throttleKey(agentID), 1, t.cooldown)
}
