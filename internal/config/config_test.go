package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/test")
	t.Setenv("MALPRACTICE_LIMIT", "")
	t.Setenv("JUDGE_TIMEOUT", "")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if cfg.Exam.MalpracticeLimit != 3 {
		t.Errorf("MalpracticeLimit = %d, want 3", cfg.Exam.MalpracticeLimit)
	}
	if cfg.Judge.Timeout != 10*time.Second {
		t.Errorf("Judge.Timeout = %v, want 10s", cfg.Judge.Timeout)
	}
	if cfg.DatabaseURL != "postgres://localhost/test" {
		t.Errorf("DatabaseURL = %q", cfg.DatabaseURL)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("JUDGE_TIMEOUT", "3s")
	t.Setenv("MALPRACTICE_LIMIT", "5")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("Kafka.Brokers = %v", cfg.Kafka.Brokers)
	}
	if cfg.Judge.Timeout != 3*time.Second {
		t.Errorf("Judge.Timeout = %v", cfg.Judge.Timeout)
	}
	if cfg.Exam.MalpracticeLimit != 5 {
		t.Errorf("MalpracticeLimit = %d", cfg.Exam.MalpracticeLimit)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel = %v", cfg.LogLevel)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name string
		key  string
		val  string
	}{
		{name: "zero malpractice limit", key: "MALPRACTICE_LIMIT", val: "0"},
		{name: "negative judge timeout", key: "JUDGE_TIMEOUT", val: "-1s"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			if _, err := LoadConfig(); err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.val)
			}
		})
	}
}
