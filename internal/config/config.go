package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// maxSaltBytes is the largest key accepted by a keyed BLAKE2b pass.
const maxSaltBytes = 64

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Policy       PolicyConfig
	Notification NotificationConfig
	RateLimit    RateLimitConfig
	Worker       WorkerConfig
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
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines credential handling parameters.
type AuthConfig struct {
	MaxIDAttempts int
}

// PolicyConfig carries the registration and hashing policy. It may come from
// a YAML file and is overridden field by field from the environment.
type PolicyConfig struct {
	AllowedEmailDomains []string `yaml:"allowed_email_domains"`
	Salts               []string `yaml:"salts"`
}

// NotificationConfig holds outbound notification targets.
type NotificationConfig struct {
	RedisChannel  string
	WebhookURL    string
	SigningSecret string
}

// RateLimitConfig configures per-client throttling of mutating endpoints.
type RateLimitConfig struct {
	PerMinute int
}

// WorkerConfig configures background jobs.
type WorkerConfig struct {
	FreezeSweepIntervalSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	policy, err := loadPolicy(os.Getenv("POLICY_FILE"))
	if err != nil {
		return nil, err
	}
	if domains := getEnvAsList("ALLOWED_EMAIL_DOMAINS"); len(domains) > 0 {
		policy.AllowedEmailDomains = domains
	}
	if salts := getEnvAsList("CREDENTIAL_SALTS"); len(salts) > 0 {
		policy.Salts = salts
	}
	if len(policy.AllowedEmailDomains) == 0 {
		policy.AllowedEmailDomains = []string{"company.com"}
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "release-queue"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "4400"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			MaxIDAttempts: getEnvAsInt("AUTH_MAX_ID_ATTEMPTS", 16),
		},
		Policy: policy,
		Notification: NotificationConfig{
			RedisChannel:  getEnv("NOTIFY_REDIS_CHANNEL", "queue-events"),
			WebhookURL:    getEnv("NOTIFY_WEBHOOK_URL", ""),
			SigningSecret: getEnv("NOTIFY_SIGNING_SECRET", "dev-secret"),
		},
		RateLimit: RateLimitConfig{
			PerMinute: getEnvAsInt("RATE_LIMIT_PER_MINUTE", 60),
		},
		Worker: WorkerConfig{
			FreezeSweepIntervalSeconds: getEnvAsInt("WORKER_FREEZE_SWEEP_SECONDS", 3600),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise surface as request failures.
func (c *Config) Validate() error {
	if len(c.Policy.AllowedEmailDomains) == 0 {
		return errors.New("at least one allowed email domain is required")
	}
	for _, salt := range c.Policy.Salts {
		if len(salt) > maxSaltBytes {
			return fmt.Errorf("credential salt exceeds %d bytes", maxSaltBytes)
		}
	}
	if c.Auth.MaxIDAttempts <= 0 {
		return errors.New("AUTH_MAX_ID_ATTEMPTS must be positive")
	}
	if c.App.Env != "development" && c.Notification.WebhookURL != "" && c.Notification.SigningSecret == "dev-secret" {
		return errors.New("NOTIFY_SIGNING_SECRET must be set outside development")
	}
	return nil
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

// FreezeSweepInterval returns the sweeper period, or zero when disabled.
func (w WorkerConfig) FreezeSweepInterval() time.Duration {
	if w.FreezeSweepIntervalSeconds <= 0 {
		return 0
	}
	return time.Duration(w.FreezeSweepIntervalSeconds) * time.Second
}

func loadPolicy(path string) (PolicyConfig, error) {
	var policy PolicyConfig
	if path == "" {
		return policy, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return policy, fmt.Errorf("read policy file: %w", err)
	}
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return policy, fmt.Errorf("parse policy file: %w", err)
	}
	return policy, nil
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

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
