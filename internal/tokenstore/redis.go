package tokenstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisKey = "cv-evaluator:session"

// Redis stores the state under a single key. A positive TTL makes the key
// expire, after which Load reports ErrNotFound.
type Redis struct {
	client redis.UniversalClient
	key    string
	ttl    time.Duration
}

func NewRedis(client redis.UniversalClient, key string, ttl time.Duration) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if key == "" {
		key = defaultRedisKey
	}
	if ttl < 0 {
		ttl = 0
	}

	return &Redis{client: client, key: key, ttl: ttl}, nil
}

func (r *Redis) Load(ctx context.Context) (*State, error) {
	data, err := r.client.Get(ctx, r.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("redis get %s: %w", r.key, err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("decode redis session %s: %w", r.key, err)
	}

	return &state, nil
}

func (r *Redis) Save(ctx context.Context, state *State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	if err := r.client.Set(ctx, r.key, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", r.key, err)
	}
	return nil
}

func (r *Redis) Clear(ctx context.Context) error {
	if err := r.client.Del(ctx, r.key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", r.key, err)
	}
	return nil
}
