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
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Escalation   EscalationConfig
	Refresh      RefreshConfig
	Realtime     RealtimeConfig
	Events       EventsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
	StoreDriver           string
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
	// StatementTimeout bounds every query server-side; zero leaves the
	// server default.
	StatementTimeout time.Duration
	ApplicationName  string
}

// EventsConfig controls workflow event delivery. With Async unset, handlers
// run inline on the publishing request.
type EventsConfig struct {
	Async          bool
	QueueSize      int
	HandlerTimeout time.Duration
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr        string
	Password    string
	DB          int
	DialTimeout time.Duration
	KeyPrefix   string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
	// Format is json or console.
	Format string
	Output string
}

// AuthConfig defines session token parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	Issuer                string
}

// NotificationConfig holds outbound notification endpoints.
type NotificationConfig struct {
	SlackWebhookURL string
	SlackChannel    string
	ConsoleBaseURL  string
	SlackTimeout    time.Duration
}

// EscalationConfig controls verification code handling. Zero values keep the
// legacy behavior: unlimited attempts, no expiry and plaintext storage.
type EscalationConfig struct {
	OTPMaxAttempts int
	OTPTTL         time.Duration
	HashAtRest     bool
	BcryptCost     int
}

// RefreshConfig holds per-view read model refresh intervals.
type RefreshConfig struct {
	ActiveQueue time.Duration
	Escalations time.Duration
	Stats       time.Duration
	Tickets     time.Duration
	Urgent      time.Duration
	Analytics   time.Duration
	CallQueue   time.Duration
}

// RealtimeConfig configures cross-instance change fan-out.
type RealtimeConfig struct {
	RedisChannel string
	Enabled      bool
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "callcenter-console"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
			StoreDriver:           getEnv("STORE_DRIVER", "postgres"),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,

			StatementTimeout: getEnvAsDuration("POSTGRES_STATEMENT_TIMEOUT", 5*time.Second),
			ApplicationName:  getEnv("POSTGRES_APPLICATION_NAME", "callcenter-console"),
		},
		Redis: RedisConfig{
			Addr:        getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:    os.Getenv("REDIS_PASSWORD"),
			DB:          redisDB,
			DialTimeout: getEnvAsDuration("REDIS_DIAL_TIMEOUT", 3*time.Second),
			KeyPrefix:   getEnv("REDIS_KEY_PREFIX", "callcenter:"),
		},
		Logger: LoggerConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
			Output: getEnv("LOG_OUTPUT", "stdout"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			Issuer:                getEnv("AUTH_ISSUER", "callcenter-console"),
		},
		Notification: NotificationConfig{
			SlackWebhookURL: os.Getenv("NOTIFY_SLACK_WEBHOOK_URL"),
			SlackChannel:    os.Getenv("NOTIFY_SLACK_CHANNEL"),
			ConsoleBaseURL:  getEnv("NOTIFY_CONSOLE_BASE_URL", "http://localhost:5173"),
			SlackTimeout:    getEnvAsDuration("NOTIFY_SLACK_TIMEOUT", 5*time.Second),
		},
		Escalation: EscalationConfig{
			OTPMaxAttempts: getEnvAsInt("ESCALATION_OTP_MAX_ATTEMPTS", 0),
			OTPTTL:         getEnvAsDuration("ESCALATION_OTP_TTL", 0),
			HashAtRest:     getEnvAsBool("ESCALATION_OTP_HASH_AT_REST", false),
			BcryptCost:     getEnvAsInt("ESCALATION_OTP_BCRYPT_COST", 10),
		},
		Refresh: RefreshConfig{
			ActiveQueue: getEnvAsDuration("REFRESH_ACTIVE_QUEUE_INTERVAL", 5*time.Second),
			Escalations: getEnvAsDuration("REFRESH_ESCALATIONS_INTERVAL", 10*time.Second),
			Stats:       getEnvAsDuration("REFRESH_STATS_INTERVAL", 10*time.Second),
			Tickets:     getEnvAsDuration("REFRESH_TICKETS_INTERVAL", 30*time.Second),
			Urgent:      getEnvAsDuration("REFRESH_URGENT_INTERVAL", 30*time.Second),
			Analytics:   getEnvAsDuration("REFRESH_ANALYTICS_INTERVAL", 60*time.Second),
			CallQueue:   getEnvAsDuration("REFRESH_CALL_QUEUE_INTERVAL", 5*time.Second),
		},
		Events: EventsConfig{
			Async:          getEnvAsBool("EVENTS_ASYNC", true),
			QueueSize:      getEnvAsInt("EVENTS_QUEUE_SIZE", 1024),
			HandlerTimeout: getEnvAsDuration("EVENTS_HANDLER_TIMEOUT", 10*time.Second),
		},
		Realtime: RealtimeConfig{
			RedisChannel: getEnv("REALTIME_REDIS_CHANNEL", "callcenter:changes"),
			Enabled:      getEnvAsBool("REALTIME_REDIS_ENABLED", true),
		},
	}

	if cfg.App.StoreDriver != "postgres" && cfg.App.StoreDriver != "memory" {
		return nil, fmt.Errorf("invalid STORE_DRIVER %q: want postgres or memory", cfg.App.StoreDriver)
	}
	if cfg.Logger.Format != "json" && cfg.Logger.Format != "console" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: want json or console", cfg.Logger.Format)
	}
	if cfg.Escalation.OTPMaxAttempts < 0 {
		return nil, fmt.Errorf("invalid ESCALATION_OTP_MAX_ATTEMPTS: %d", cfg.Escalation.OTPMaxAttempts)
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

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}
