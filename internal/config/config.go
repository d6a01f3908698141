package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Environment string
	LogLevel    slog.Level

	DatabaseURL string
	RedisURL    string

	Casdoor CasdoorConfig
	Kafka   KafkaConfig
	Judge   JudgeConfig
	Exam    ExamConfig
}

// CasdoorConfig holds the identity provider settings used by the auth middleware and user repository
type CasdoorConfig struct {
	Endpoint     string
	ClientID     string
	ClientSecret string
	Cert         string
	Organization string
	Application  string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
}

type JudgeConfig struct {
	URL     string
	Timeout time.Duration
}

// ExamConfig holds session policy defaults
type ExamConfig struct {
	MalpracticeLimit int
	SweepSchedule    string
	DraftTTL         time.Duration
}

// LoadConfig reads .env (when present) and then the process environment
func LoadConfig() (*Config, error) {
	// .env is optional; real deployments inject the environment directly
	_ = godotenv.Load()

	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    parseLogLevel(getEnv("LOG_LEVEL", "info")),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),
		Casdoor: CasdoorConfig{
			Endpoint:     getEnv("CASDOOR_ENDPOINT", ""),
			ClientID:     getEnv("CASDOOR_CLIENT_ID", ""),
			ClientSecret: getEnv("CASDOOR_CLIENT_SECRET", ""),
			Cert:         getEnv("CASDOOR_CERT", ""),
			Organization: getEnv("CASDOOR_ORGANIZATION", ""),
			Application:  getEnv("CASDOOR_APPLICATION", ""),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("EVENTS_TOPIC", "exam-session-events"),
		},
		Judge: JudgeConfig{
			URL:     getEnv("JUDGE_URL", "http://localhost:8081/judge"),
			Timeout: getEnvDuration("JUDGE_TIMEOUT", 10*time.Second),
		},
		Exam: ExamConfig{
			MalpracticeLimit: getEnvInt("MALPRACTICE_LIMIT", 3),
			SweepSchedule:    getEnv("SWEEP_SCHEDULE", "@every 1m"),
			DraftTTL:         getEnvDuration("DRAFT_TTL", 6*time.Hour),
		},
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = buildDatabaseURL()
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Exam.MalpracticeLimit < 1 {
		return fmt.Errorf("MALPRACTICE_LIMIT must be at least 1, got %d", c.Exam.MalpracticeLimit)
	}
	if c.Judge.Timeout <= 0 {
		return fmt.Errorf("JUDGE_TIMEOUT must be positive")
	}
	if c.Environment == "production" && c.Casdoor.Endpoint == "" {
		return fmt.Errorf("CASDOOR_ENDPOINT is required in production")
	}
	return nil
}

func buildDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
		getEnv("DB_HOST", "localhost"),
		getEnv("DB_PORT", "5432"),
		getEnv("DB_USER", "postgres"),
		getEnv("DB_PASSWORD", "postgres"),
		getEnv("DB_NAME", "exam_sessions"),
		getEnv("DB_SSLMODE", "disable"),
	)
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseLogLevel(v string) slog.Level {
	switch strings.ToLower(v) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
