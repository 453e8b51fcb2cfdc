package bootstrap

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/whisperbox/internal/config"
	"github.com/wolfman30/whisperbox/internal/gate"
	"github.com/wolfman30/whisperbox/internal/letters"
	"github.com/wolfman30/whisperbox/internal/moderation"
)

// ModerationStores is the queue the writer appends to and, when the backend
// supports browsing, the store moderators review.
type ModerationStores struct {
	Queue  moderation.Store
	Review moderation.ReviewStore
}

// BuildModerationStores selects the MODERATION_BACKEND implementation.
func BuildModerationStores(cfg *appconfig.Config, pool *pgxpool.Pool, dynamoClient *dynamodb.Client) (ModerationStores, error) {
	backend := "memory"
	if cfg != nil && cfg.ModerationBackend != "" {
		backend = cfg.ModerationBackend
	}
	switch backend {
	case "memory":
		store := moderation.NewMemoryStore()
		return ModerationStores{Queue: store, Review: store}, nil
	case "postgres":
		if pool == nil {
			return ModerationStores{}, fmt.Errorf("bootstrap: postgres moderation backend needs DATABASE_URL")
		}
		store := moderation.NewPostgresStore(pool)
		return ModerationStores{Queue: store, Review: store}, nil
	case "dynamodb":
		if dynamoClient == nil {
			return ModerationStores{}, fmt.Errorf("bootstrap: dynamodb moderation backend needs an AWS client")
		}
		return ModerationStores{Queue: moderation.NewDynamoStore(dynamoClient, cfg.ModerationTable)}, nil
	default:
		return ModerationStores{}, fmt.Errorf("bootstrap: unknown moderation backend %q", backend)
	}
}

// BuildPendingStore holds gated drafts in Redis when available so any API
// replica can resolve a ticket.
func BuildPendingStore(redisClient *redis.Client) gate.Store {
	if redisClient == nil {
		return gate.NewMemoryStore()
	}
	return gate.NewRedisStore(redisClient)
}

// BuildLetterRepository persists letters in Postgres when a pool is given.
func BuildLetterRepository(pool *pgxpool.Pool) letters.Repository {
	if pool == nil {
		return letters.NewInMemoryRepository()
	}
	return letters.NewPostgresRepository(pool)
}
