package relay

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

// DefaultCheckpointKey is the Redis key used when none is configured.
const DefaultCheckpointKey = "tenderledger:relay:checkpoint"

// RedisCheckpoints persists the relay position in Redis so a restarted
// process resumes publishing instead of re-delivering the whole log.
type RedisCheckpoints struct {
	client *redis.Client
	key    string
}

func NewRedisCheckpoints(client *redis.Client, key string) *RedisCheckpoints {
	if key == "" {
		key = DefaultCheckpointKey
	}
	return &RedisCheckpoints{client: client, key: key}
}

func (c *RedisCheckpoints) Load(ctx context.Context) (uint64, error) {
	val, err := c.client.Get(ctx, c.key).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("load relay checkpoint: %w", err)
	}
	seq, err := strconv.ParseUint(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse relay checkpoint %q: %w", val, err)
	}
	return seq, nil
}

func (c *RedisCheckpoints) Save(ctx context.Context, seq uint64) error {
	if err := c.client.Set(ctx, c.key, strconv.FormatUint(seq, 10), 0).Err(); err != nil {
		return fmt.Errorf("save relay checkpoint: %w", err)
	}
	return nil
}
