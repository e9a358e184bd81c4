package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App           AppConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Logger        LoggerConfig
	Auth          AuthConfig
	TicketService TicketServiceConfig
	Alert         AlertConfig
	Backoff       BackoffConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	CallbackToken         string
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
	CacheTTL time.Duration
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig holds the shared secret for validating operator tokens issued by
// the platform's identity service. Token issuance is not this service's job.
type AuthConfig struct {
	JWTSecret string
}

// TicketServiceConfig points at the external ticket service used for thread
// reconstruction.
type TicketServiceConfig struct {
	BaseURL   string
	TimeoutMS int
}

// AlertConfig holds stub alert endpoints for repeated delivery failures.
type AlertConfig struct {
	EmailFrom        string
	WebhookURL       string
	FailureThreshold int
}

// BackoffConfig bounds retries of transient store failures on read paths.
type BackoffConfig struct {
	InitialDelayMS int
	MaxDelayMS     int
	Multiplier     float64
	MaxAttempts    int
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
			Name:                  getEnv("APP_NAME", "comms-audit-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			CallbackToken:         os.Getenv("DELIVERY_CALLBACK_TOKEN"),
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
			CacheTTL: time.Duration(getEnvAsInt("ANALYTICS_CACHE_TTL_SECONDS", 60)) * time.Second,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", "dev-secret"),
		},
		TicketService: TicketServiceConfig{
			BaseURL:   getEnv("TICKET_SERVICE_BASE_URL", "http://127.0.0.1:8090"),
			TimeoutMS: getEnvAsInt("TICKET_SERVICE_TIMEOUT_MS", 2000),
		},
		Alert: AlertConfig{
			EmailFrom:        getEnv("ALERT_EMAIL_FROM", "noreply@example.com"),
			WebhookURL:       getEnv("ALERT_WEBHOOK_URL", ""),
			FailureThreshold: getEnvAsInt("ALERT_FAILURE_THRESHOLD", 3),
		},
		Backoff: BackoffConfig{
			InitialDelayMS: getEnvAsInt("STORE_RETRY_INITIAL_DELAY_MS", 50),
			MaxDelayMS:     getEnvAsInt("STORE_RETRY_MAX_DELAY_MS", 2000),
			Multiplier:     getEnvAsFloat("STORE_RETRY_MULTIPLIER", 2.0),
			MaxAttempts:    getEnvAsInt("STORE_RETRY_MAX_ATTEMPTS", 3),
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

// Timeout returns the ticket lookup deadline.
func (t TicketServiceConfig) Timeout() time.Duration {
	if t.TimeoutMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(t.TimeoutMS) * time.Millisecond
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

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
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
