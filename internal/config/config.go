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
	Auth     AuthConfig
	Scanner  ScannerConfig
	Survey   SurveyConfig
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

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	// DetectorAPIKeyHash is the bcrypt hash of the API key presented by
	// the external detection pipeline on the case-creation webhook.
	DetectorAPIKeyHash string
}

// ScannerConfig controls the SLA breach scanner.
type ScannerConfig struct {
	IntervalSeconds int
	DeadlineSeconds int
	BatchSize       int
}

// SurveyConfig controls the recovery survey scheduler.
type SurveyConfig struct {
	IntervalSeconds int
	DeadlineSeconds int
	BatchSize       int
	ThrottleDays    int
	WebhookURL      string
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
			Name:                  getEnv("APP_NAME", "feedback-engine"),
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
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			DetectorAPIKeyHash:    os.Getenv("DETECTOR_API_KEY_HASH"),
		},
		Scanner: ScannerConfig{
			IntervalSeconds: getEnvAsInt("SLA_SCAN_INTERVAL_SECONDS", 300),
			DeadlineSeconds: getEnvAsInt("SLA_SCAN_DEADLINE_SECONDS", 120),
			BatchSize:       getEnvAsInt("SLA_SCAN_BATCH_SIZE", 100),
		},
		Survey: SurveyConfig{
			IntervalSeconds: getEnvAsInt("SURVEY_SCAN_INTERVAL_SECONDS", 600),
			DeadlineSeconds: getEnvAsInt("SURVEY_SCAN_DEADLINE_SECONDS", 120),
			BatchSize:       getEnvAsInt("SURVEY_SCAN_BATCH_SIZE", 100),
			ThrottleDays:    getEnvAsInt("SURVEY_THROTTLE_DAYS", 30),
			WebhookURL:      getEnv("SURVEY_WEBHOOK_URL", ""),
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

// Interval returns the scan tick interval.
func (s ScannerConfig) Interval() time.Duration {
	if s.IntervalSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(s.IntervalSeconds) * time.Second
}

// Deadline returns the per-pass deadline.
func (s ScannerConfig) Deadline() time.Duration {
	if s.DeadlineSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(s.DeadlineSeconds) * time.Second
}

// Interval returns the scheduler tick interval.
func (s SurveyConfig) Interval() time.Duration {
	if s.IntervalSeconds <= 0 {
		return 10 * time.Minute
	}
	return time.Duration(s.IntervalSeconds) * time.Second
}

// Deadline returns the per-pass deadline.
func (s SurveyConfig) Deadline() time.Duration {
	if s.DeadlineSeconds <= 0 {
		return 2 * time.Minute
	}
	return time.Duration(s.DeadlineSeconds) * time.Second
}

// ThrottleWindow returns the minimum spacing between surveys to one contact.
func (s SurveyConfig) ThrottleWindow() time.Duration {
	if s.ThrottleDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(s.ThrottleDays) * 24 * time.Hour
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
