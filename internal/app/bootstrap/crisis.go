package bootstrap

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/whisperbox/internal/config"
	"github.com/wolfman30/whisperbox/internal/crisis"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

// BuildKeywordSource resolves CRISIS_KEYWORDS_SOURCE. Remote sources are
// fronted by the Redis cache when a client is available.
func BuildKeywordSource(cfg *appconfig.Config, s3Client crisis.S3API, redisClient *redis.Client, logger *logging.Logger) (crisis.Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config required")
	}
	source, err := crisis.SourceFromLocation(cfg.CrisisKeywordsSource, s3Client, cfg.CrisisKeywordsFetchTimeout)
	if err != nil {
		return nil, err
	}
	switch source.(type) {
	case crisis.EmbeddedSource, crisis.FileSource:
		return source, nil
	}
	if redisClient == nil {
		return source, nil
	}
	return crisis.NewCachedSource(source, redisClient, cfg.CrisisKeywordsCacheTTL, logger), nil
}
