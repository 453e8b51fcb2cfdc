package gate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const pendingKeyPrefix = "gate:pending:"

// RedisStore keeps pending drafts in Redis so any replica can resolve a ticket.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisStore creates a Redis-backed Store.
func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func pendingKey(token string) string {
	return pendingKeyPrefix + token
}

func (s *RedisStore) Put(ctx context.Context, held *Held, ttl time.Duration) error {
	data, err := json.Marshal(held)
	if err != nil {
		return fmt.Errorf("gate: marshal held draft: %w", err)
	}
	if err := s.rdb.Set(ctx, pendingKey(held.Token), data, ttl).Err(); err != nil {
		return fmt.Errorf("gate: store held draft: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, token string) (*Held, error) {
	return s.decode(s.rdb.Get(ctx, pendingKey(token)).Bytes())
}

// Take uses GETDEL so concurrent resolutions of one ticket cannot both win.
func (s *RedisStore) Take(ctx context.Context, token string) (*Held, error) {
	return s.decode(s.rdb.GetDel(ctx, pendingKey(token)).Bytes())
}

func (s *RedisStore) decode(data []byte, err error) (*Held, error) {
	if errors.Is(err, redis.Nil) {
		return nil, ErrTicketNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("gate: load held draft: %w", err)
	}
	var held Held
	if err := json.Unmarshal(data, &held); err != nil {
		return nil, fmt.Errorf("gate: unmarshal held draft: %w", err)
	}
	return &held, nil
}
