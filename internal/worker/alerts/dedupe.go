package alerts

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	dedupeKeyPrefix  = "alerts:sent:"
	defaultDedupeTTL = 24 * time.Hour
)

// RedisDedupe remembers which records were already alerted so a redelivered
// SQS message does not email moderators twice.
type RedisDedupe struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisDedupe(client *redis.Client, ttl time.Duration) *RedisDedupe {
	if ttl <= 0 {
		ttl = defaultDedupeTTL
	}
	return &RedisDedupe{client: client, ttl: ttl}
}

// Claim reports true the first time recordID is seen within the TTL.
func (d *RedisDedupe) Claim(ctx context.Context, recordID string) (bool, error) {
	ok, err := d.client.SetNX(ctx, dedupeKeyPrefix+recordID, time.Now().UTC().Format(time.RFC3339), d.ttl).Result()
	if err != nil {
		return false, fmt.Errorf("alerts: claim %s: %w", recordID, err)
	}
	return ok, nil
}

// Release forgets recordID so a failed alert can be retried.
func (d *RedisDedupe) Release(ctx context.Context, recordID string) error {
	if err := d.client.Del(ctx, dedupeKeyPrefix+recordID).Err(); err != nil {
		return fmt.Errorf("alerts: release %s: %w", recordID, err)
	}
	return nil
}
