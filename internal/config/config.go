// Package config assembles the process-wide Config struct from environment
// variables, once, at process start — mirroring the teacher's internal/app
// wiring sequence (logger, then config, then everything that reads it).
package config

import (
	"time"

	"github.com/relaycore/agentcore/internal/platform/envutil"
)

// Config is the single env-driven knob surface named in spec.md §6, plus
// the pool/dispatcher/client-router timeouts SPEC_FULL.md adds.
type Config struct {
	Env string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresName     string
	UseSQLite        bool
	SQLitePath       string

	RedisAddr    string
	RedisChannel string

	JobWorkersMin          int
	JobWorkersMax          int
	JobRetryLimit          int
	JobRetryDelay          time.Duration
	JobExpireSeconds       int
	JobHealthCheckInterval time.Duration

	HeartbeatInterval    time.Duration
	UnhealthyThreshold   time.Duration
	MaxConsecutiveFails  int
	DispatchInterval     time.Duration
	LowBandDrainEveryN   int

	WorkspaceDir     string
	GCSBucket        string
	TerminalTimeout  time.Duration

	ClientCommandTimeout time.Duration
	ClientJWTSecret      string

	AnthropicAPIKey    string
	AnthropicModel     string

	TwilioAccountSID          string
	TwilioAuthToken           string
	TwilioAPIKey              string
	TwilioAPIKeySecret        string
	TwilioBaseURL             string
	TwilioFromNumber          string
	TwilioMessagingServiceSID string
	TwilioTimeoutSeconds      int
	TwilioMaxRetries          int

	TavilyAPIKey                   string
	PerplexityAPIKey               string
	GitHubToken                    string
	BrowserbaseAPIKey              string
	BrowserbaseProjectID           string
	GoogleWorkspaceCredentialsJSON string
	GoogleSearchAPIKey             string
	GoogleSearchCX                 string

	ProviderRateLimitPerSecond float64

	LogRedactionEnabled bool
}

// FromEnv reads every recognized knob, applying spec.md §6 defaults where
// the environment is silent.
func FromEnv() *Config {
	return &Config{
		Env: envutil.String("APP_ENV", "development"),

		PostgresHost:     envutil.String("POSTGRES_HOST", "localhost"),
		PostgresPort:     envutil.String("POSTGRES_PORT", "5432"),
		PostgresUser:     envutil.String("POSTGRES_USER", "postgres"),
		PostgresPassword: envutil.String("POSTGRES_PASSWORD", ""),
		PostgresName:     envutil.String("POSTGRES_NAME", "agentcore"),
		UseSQLite:        envutil.Bool("USE_SQLITE", false),
		SQLitePath:       envutil.String("SQLITE_PATH", "agentcore.db"),

		RedisAddr:    envutil.String("REDIS_ADDR", ""),
		RedisChannel: envutil.String("REDIS_CHANNEL", "agentcore-events"),

		JobWorkersMin:          envutil.Int("JOB_WORKERS_MIN", 2),
		JobWorkersMax:          envutil.Int("JOB_WORKERS_MAX", 10),
		JobRetryLimit:          envutil.Int("JOB_RETRY_LIMIT", 3),
		JobRetryDelay:          envutil.Duration("JOB_RETRY_DELAY", 30*time.Second),
		JobExpireSeconds:       envutil.Int("JOB_EXPIRE_SECONDS", 300),
		JobHealthCheckInterval: envutil.Duration("JOB_HEALTH_CHECK_INTERVAL", 60*time.Second),

		HeartbeatInterval:   envutil.Duration("JOB_HEARTBEAT_INTERVAL", 30*time.Second),
		UnhealthyThreshold:  envutil.Duration("JOB_UNHEALTHY_THRESHOLD", 120*time.Second),
		MaxConsecutiveFails: envutil.Int("JOB_MAX_CONSECUTIVE_FAILURES", 5),
		DispatchInterval:    envutil.Duration("JOB_DISPATCH_INTERVAL", 2*time.Second),
		LowBandDrainEveryN:  envutil.Int("JOB_LOW_BAND_DRAIN_EVERY_N", 5),

		WorkspaceDir:    envutil.String("WORKSPACE_DIR", "./workspace"),
		GCSBucket:       envutil.String("WORKSPACE_GCS_BUCKET", ""),
		TerminalTimeout: envutil.Duration("TERMINAL_TIMEOUT", 30*time.Second),

		ClientCommandTimeout: envutil.Duration("CLIENT_COMMAND_TIMEOUT", 60*time.Second),
		ClientJWTSecret:      envutil.String("CLIENT_JWT_SECRET", ""),

		AnthropicAPIKey: envutil.String("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envutil.String("ANTHROPIC_MODEL", "claude-sonnet-4-5"),

		TwilioAccountSID:          envutil.String("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:           envutil.String("TWILIO_AUTH_TOKEN", ""),
		TwilioAPIKey:              envutil.String("TWILIO_API_KEY", ""),
		TwilioAPIKeySecret:        envutil.String("TWILIO_API_KEY_SECRET", ""),
		TwilioBaseURL:             envutil.String("TWILIO_BASE_URL", "https://api.twilio.com/2010-04-01"),
		TwilioFromNumber:          envutil.String("TWILIO_FROM_NUMBER", ""),
		TwilioMessagingServiceSID: envutil.String("TWILIO_MESSAGING_SERVICE_SID", ""),
		TwilioTimeoutSeconds:      envutil.Int("TWILIO_TIMEOUT_SECONDS", 15),
		TwilioMaxRetries:          envutil.Int("TWILIO_MAX_RETRIES", 3),

		TavilyAPIKey:                   envutil.String("TAVILY_API_KEY", ""),
		PerplexityAPIKey:               envutil.String("PERPLEXITY_API_KEY", ""),
		GitHubToken:                    envutil.String("GITHUB_TOKEN", ""),
		BrowserbaseAPIKey:              envutil.String("BROWSERBASE_API_KEY", ""),
		BrowserbaseProjectID:           envutil.String("BROWSERBASE_PROJECT_ID", ""),
		GoogleWorkspaceCredentialsJSON: envutil.String("GOOGLE_WORKSPACE_CREDENTIALS_JSON", ""),
		GoogleSearchAPIKey:             envutil.String("GOOGLE_SEARCH_API_KEY", ""),
		GoogleSearchCX:                 envutil.String("GOOGLE_SEARCH_CX", ""),

		ProviderRateLimitPerSecond: envutil.Float("PROVIDER_RATE_LIMIT_PER_SECOND", 5),

		LogRedactionEnabled: envutil.Bool("LOG_REDACTION_ENABLED", true),
	}
}
