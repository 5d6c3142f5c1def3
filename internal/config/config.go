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
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Telegram TelegramConfig
	SLA      SLAConfig
	Dialog   DialogConfig
	Sweep    SweepConfig
	Admin    AdminConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
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

// TelegramConfig holds Bot API settings.
type TelegramConfig struct {
	BotToken   string
	APIBaseURL string
	WebhookURL string
}

// SLAConfig defines the TTI target and warning window.
type SLAConfig struct {
	TTILimitHours      int
	WarningWindowHours int
}

// DialogConfig tunes the conversational flows.
type DialogConfig struct {
	IdleTTLHours int
	MinNameLen   int
}

// SweepConfig controls the periodic notification sweeps.
type SweepConfig struct {
	IntervalMinutes      int
	StaleProgressHours   int
	DeadlineWarningHours int
	DedupWindowHours     int
	CronSecret           string
}

// AdminConfig guards the operational HTTP API.
type AdminConfig struct {
	Username        string
	PasswordHash    string
	JWTSecret       string
	TokenTTLMinutes int
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
			Name:                  getEnv("APP_NAME", "fieldops-bot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
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
		Telegram: TelegramConfig{
			BotToken:   os.Getenv("BOT_TOKEN"),
			APIBaseURL: getEnv("TELEGRAM_API_BASE_URL", "https://api.telegram.org"),
			WebhookURL: os.Getenv("TELEGRAM_WEBHOOK_URL"),
		},
		SLA: SLAConfig{
			TTILimitHours:      getEnvAsInt("SLA_TTI_LIMIT_HOURS", 72),
			WarningWindowHours: getEnvAsInt("SLA_WARNING_WINDOW_HOURS", 12),
		},
		Dialog: DialogConfig{
			IdleTTLHours: getEnvAsInt("DIALOG_IDLE_TTL_HOURS", 24),
			MinNameLen:   getEnvAsInt("DIALOG_MIN_NAME_LEN", 2),
		},
		Sweep: SweepConfig{
			IntervalMinutes:      getEnvAsInt("SWEEP_INTERVAL_MINUTES", 30),
			StaleProgressHours:   getEnvAsInt("SWEEP_STALE_PROGRESS_HOURS", 2),
			DeadlineWarningHours: getEnvAsInt("SWEEP_DEADLINE_WARNING_HOURS", 6),
			DedupWindowHours:     getEnvAsInt("SWEEP_DEDUP_WINDOW_HOURS", 6),
			CronSecret:           getEnv("CRON_SECRET", "default-cron-secret"),
		},
		Admin: AdminConfig{
			Username:        getEnv("ADMIN_USERNAME", "admin"),
			PasswordHash:    os.Getenv("ADMIN_PASSWORD_HASH"),
			JWTSecret:       getEnv("ADMIN_JWT_SECRET", "dev-secret"),
			TokenTTLMinutes: getEnvAsInt("ADMIN_TOKEN_TTL_MINUTES", 60),
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

// TTILimit returns the SLA target as a duration.
func (s SLAConfig) TTILimit() time.Duration {
	return time.Duration(s.TTILimitHours) * time.Hour
}

// WarningWindow returns the pre-deadline warning window as a duration.
func (s SLAConfig) WarningWindow() time.Duration {
	return time.Duration(s.WarningWindowHours) * time.Hour
}

// IdleTTL returns how long an abandoned conversation is retained.
func (d DialogConfig) IdleTTL() time.Duration {
	return time.Duration(d.IdleTTLHours) * time.Hour
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
