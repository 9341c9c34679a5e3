package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the gateway.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Pipeline PipelineConfig
	Media    MediaConfig
	Webhook  WebhookConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	FrontendURL           string
	Timezone              string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters for the agent API.
type AuthConfig struct {
	JWTSecret string
}

// PipelineConfig tunes the inbound event pipeline.
type PipelineConfig struct {
	// EventWorkers is the size of the shared inbound worker pool.
	EventWorkers int
	// EventQueueSize bounds the pending-event buffer of that pool.
	EventQueueSize int
	// MediaWorkers bounds concurrent media downloads across all channels.
	MediaWorkers int
	// MenuDebounceMS coalesces repeated queue-menu triggers per ticket.
	MenuDebounceMS int
	// AckSettleDelayMS is waited before applying an ack so the original
	// ingestion can land first.
	AckSettleDelayMS int
	// CloseOnOwnMessage closes a fresh ticket created by the organization's
	// own outbound message when no open/pending ticket existed beforehand.
	CloseOnOwnMessage bool
	// BlockGroupMessages drops every group event before processing.
	BlockGroupMessages bool
	// RejectCalls answers terminated incoming calls with an auto-reply and a
	// call_log message.
	RejectCalls bool
}

// MediaConfig locates the public media store.
type MediaConfig struct {
	Dir string
}

// WebhookConfig covers the Meta (facebook/instagram) webhook receiver.
type WebhookConfig struct {
	VerifyToken string
	AppSecret   string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-gateway"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			FrontendURL:           getEnv("FRONTEND_URL", "http://localhost:3000"),
			Timezone:              getEnv("APP_TIMEZONE", "America/Sao_Paulo"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", "dev-secret"),
		},
		Pipeline: PipelineConfig{
			EventWorkers:       getEnvAsInt("PIPELINE_EVENT_WORKERS", 4),
			EventQueueSize:     getEnvAsInt("PIPELINE_EVENT_QUEUE_SIZE", 256),
			MediaWorkers:       getEnvAsInt("PIPELINE_MEDIA_WORKERS", 4),
			MenuDebounceMS:     getEnvAsInt("PIPELINE_MENU_DEBOUNCE_MS", 3000),
			AckSettleDelayMS:   getEnvAsInt("PIPELINE_ACK_SETTLE_DELAY_MS", 500),
			CloseOnOwnMessage:  getEnvAsBool("CLOSED_SEND_BY_ME", false),
			BlockGroupMessages: getEnvAsBool("PIPELINE_BLOCK_GROUP_MESSAGES", false),
			RejectCalls:        getEnvAsBool("PIPELINE_REJECT_CALLS", false),
		},
		Media: MediaConfig{
			Dir: getEnv("MEDIA_DIR", "public"),
		},
		Webhook: WebhookConfig{
			VerifyToken: os.Getenv("META_VERIFY_TOKEN"),
			AppSecret:   os.Getenv("META_APP_SECRET"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Location resolves the configured timezone, falling back to UTC.
func (a AppConfig) Location() *time.Location {
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// MenuDebounce returns the queue-menu debounce window.
func (p PipelineConfig) MenuDebounce() time.Duration {
	if p.MenuDebounceMS <= 0 {
		return 3 * time.Second
	}
	return time.Duration(p.MenuDebounceMS) * time.Millisecond
}

// AckSettleDelay returns the delay applied before ack reconciliation.
func (p PipelineConfig) AckSettleDelay() time.Duration {
	if p.AckSettleDelayMS < 0 {
		return 0
	}
	return time.Duration(p.AckSettleDelayMS) * time.Millisecond
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
