package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Crisis keyword database
	CrisisKeywordsSource       string
	CrisisKeywordsCacheTTL     time.Duration
	CrisisKeywordsFetchTimeout time.Duration

	// Moderation queue
	ModerationBackend      string
	ModerationTable        string
	ModerationWriteTimeout time.Duration
	ModerationQueueURL     string
	ModeratorEmails        []string
	ModerationDashboardURL string
	AlertWorkerCount       int
	AlertDedupeTTL         time.Duration

	// Email
	EmailProvider  string
	SendGridAPIKey string
	EmailFrom      string
	EmailFromName  string
	// SESConfigurationSet routes SES delivery events; optional.
	SESConfigurationSet string

	AdminJWTSecret     string
	UserJWTSecret      string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
	PendingDraftTTL    time.Duration

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CrisisKeywordsSource:       getEnv("CRISIS_KEYWORDS_SOURCE", ""),
		CrisisKeywordsCacheTTL:     getEnvAsDuration("CRISIS_KEYWORDS_CACHE_TTL", 10*time.Minute),
		CrisisKeywordsFetchTimeout: getEnvAsDuration("CRISIS_KEYWORDS_FETCH_TIMEOUT", 5*time.Second),

		ModerationBackend:      strings.ToLower(strings.TrimSpace(getEnv("MODERATION_BACKEND", "memory"))),
		ModerationTable:        getEnv("MODERATION_TABLE", "moderation_queue"),
		ModerationWriteTimeout: getEnvAsDuration("MODERATION_WRITE_TIMEOUT", 3*time.Second),
		ModerationQueueURL:     getEnv("MODERATION_QUEUE_URL", ""),
		ModeratorEmails:        getEnvAsList("MODERATOR_EMAILS"),
		ModerationDashboardURL: getEnv("MODERATION_DASHBOARD_URL", ""),
		AlertWorkerCount:       getEnvAsInt("ALERT_WORKER_COUNT", 2),
		AlertDedupeTTL:         getEnvAsDuration("ALERT_DEDUPE_TTL", 24*time.Hour),

		EmailProvider:       strings.ToLower(strings.TrimSpace(getEnv("EMAIL_PROVIDER", "stub"))),
		SendGridAPIKey:      getEnv("SENDGRID_API_KEY", ""),
		EmailFrom:           getEnv("EMAIL_FROM", ""),
		EmailFromName:       getEnv("EMAIL_FROM_NAME", "WhisperBox Safety"),
		SESConfigurationSet: getEnv("SES_CONFIGURATION_SET", ""),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		UserJWTSecret:      getEnv("USER_JWT_SECRET", ""),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RateLimitRPS:       getEnvAsFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 5),
		PendingDraftTTL:    getEnvAsDuration("PENDING_DRAFT_TTL", 30*time.Minute),

		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
