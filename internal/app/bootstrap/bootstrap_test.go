package bootstrap

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/whisperbox/internal/config"
	"github.com/wolfman30/whisperbox/internal/crisis"
	"github.com/wolfman30/whisperbox/internal/gate"
	"github.com/wolfman30/whisperbox/internal/letters"
	"github.com/wolfman30/whisperbox/internal/moderation"
	"github.com/wolfman30/whisperbox/internal/notify"
	"github.com/wolfman30/whisperbox/pkg/logging"
)

func TestBuildRedisClient(t *testing.T) {
	logger := logging.New("error")
	if client := BuildRedisClient(context.Background(), &appconfig.Config{}, logger); client != nil {
		t.Fatalf("expected nil client without REDIS_ADDR")
	}

	mr := miniredis.RunT(t)
	client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: mr.Addr()}, logger)
	if client == nil {
		t.Fatalf("expected client for reachable redis")
	}
	_ = client.Close()

	addr := mr.Addr()
	mr.Close()
	if client := BuildRedisClient(context.Background(), &appconfig.Config{RedisAddr: addr}, logger); client != nil {
		t.Fatalf("expected nil client when ping fails")
	}
}

func TestRedisOptions(t *testing.T) {
	opts := redisOptions(&appconfig.Config{RedisAddr: " cache:6379 ", RedisPassword: "pw", RedisTLS: true})
	if opts.Addr != "cache:6379" || opts.Password != "pw" {
		t.Fatalf("unexpected options %+v", opts)
	}
	if opts.TLSConfig == nil {
		t.Fatalf("expected TLS config when REDIS_TLS is set")
	}
	if opts.ReadTimeout <= 0 || opts.DialTimeout <= 0 {
		t.Fatalf("expected explicit timeouts, got %+v", opts)
	}
	if redisOptions(&appconfig.Config{RedisAddr: "cache:6379"}).TLSConfig != nil {
		t.Fatalf("expected no TLS by default")
	}
}

func TestPoolConfig(t *testing.T) {
	pc, err := poolConfig("postgres://u:p@localhost:5432/whisperbox")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := pc.ConnConfig.RuntimeParams["application_name"]; got != applicationName {
		t.Fatalf("expected default application name, got %q", got)
	}

	pc, err = poolConfig("postgres://u:p@localhost:5432/whisperbox?application_name=migrator")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := pc.ConnConfig.RuntimeParams["application_name"]; got != "migrator" {
		t.Fatalf("expected url application name to win, got %q", got)
	}

	if _, err := poolConfig("postgres://u:p@localhost:notaport/db"); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestConnectPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	if pool := ConnectPostgresPool(context.Background(), "", logging.New("error")); pool != nil {
		t.Fatalf("expected nil pool for empty URL")
	}
}

func TestBuildKeywordSource(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	src, err := BuildKeywordSource(&appconfig.Config{}, nil, rdb, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := src.(crisis.EmbeddedSource); !ok {
		t.Fatalf("expected embedded source, got %T", src)
	}

	src, err = BuildKeywordSource(&appconfig.Config{CrisisKeywordsSource: "https://cdn.example.com/keywords.json"}, nil, rdb, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := src.(*crisis.CachedSource); !ok {
		t.Fatalf("expected redis-cached source, got %T", src)
	}

	src, err = BuildKeywordSource(&appconfig.Config{CrisisKeywordsSource: "s3://bucket/keywords.yaml"}, nil, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := src.(*crisis.S3Source); !ok {
		t.Fatalf("expected uncached s3 source without redis, got %T", src)
	}

	if _, err := BuildKeywordSource(&appconfig.Config{CrisisKeywordsSource: "ftp://nope"}, nil, nil, nil); err == nil {
		t.Fatalf("expected error for unsupported location")
	}
}

func TestBuildModerationStores(t *testing.T) {
	stores, err := BuildModerationStores(&appconfig.Config{ModerationBackend: "memory"}, nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := stores.Queue.(*moderation.MemoryStore); !ok || stores.Review == nil {
		t.Fatalf("expected memory queue with review, got %+v", stores)
	}

	for _, backend := range []string{"postgres", "dynamodb", "cassandra"} {
		if _, err := BuildModerationStores(&appconfig.Config{ModerationBackend: backend}, nil, nil); err == nil {
			t.Errorf("%s: expected error without a client", backend)
		}
	}
}

func TestBuildPendingStoreAndLetters(t *testing.T) {
	if _, ok := BuildPendingStore(nil).(*gate.MemoryStore); !ok {
		t.Fatalf("expected memory pending store without redis")
	}
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	if _, ok := BuildPendingStore(rdb).(*gate.RedisStore); !ok {
		t.Fatalf("expected redis pending store")
	}
	if _, ok := BuildLetterRepository(nil).(*letters.InMemoryRepository); !ok {
		t.Fatalf("expected in-memory letters without a pool")
	}
}

func TestBuildEmailSenderFallsBackToStub(t *testing.T) {
	logger := logging.New("error")
	if _, ok := BuildEmailSender(&appconfig.Config{EmailProvider: "sendgrid"}, nil, logger).(*notify.StubEmailSender); !ok {
		t.Fatalf("expected stub without api key")
	}
	if _, ok := BuildEmailSender(&appconfig.Config{EmailProvider: "sendgrid", SendGridAPIKey: "k"}, nil, logger).(*notify.SendGridSender); !ok {
		t.Fatalf("expected sendgrid sender")
	}
	if _, ok := BuildEmailSender(&appconfig.Config{EmailProvider: "ses"}, nil, logger).(*notify.StubEmailSender); !ok {
		t.Fatalf("expected stub without ses client")
	}
}

func TestBuildModerationNotifier(t *testing.T) {
	alerter := notify.NewModeratorAlerter(notify.NewStubEmailSender(nil), []string{"mod@example.com"}, nil)

	if n := BuildModerationNotifier(&appconfig.Config{}, nil, alerter); n != nil {
		t.Fatalf("expected no notifier without moderator emails, got %T", n)
	}
	n := BuildModerationNotifier(&appconfig.Config{ModeratorEmails: []string{"mod@example.com"}}, nil, alerter)
	if _, ok := n.(*notify.ModeratorAlerter); !ok {
		t.Fatalf("expected inline alerter, got %T", n)
	}
}
