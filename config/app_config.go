package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Driver names accepted in the postgres.driver setting.
const (
	DriverPGXPool = "pgx.pool"
	DriverSQLDB   = "sql.db"
	DriverSQLX    = "sqlx.db"
)

// Unresolved type token policies accepted in the dispatch.unresolved_type_tokens setting.
const (
	PolicySkip = "skip"
	PolicyFail = "fail"
)

// Metrics backends accepted in the observability.metrics setting.
const (
	MetricsNone       = "none"
	MetricsOTel       = "otel"
	MetricsPrometheus = "prometheus"
)

var (
	ErrUnsupportedDriver         = errors.New("unsupported postgres driver")
	ErrUnsupportedPolicy         = errors.New("unsupported unresolved type token policy")
	ErrUnsupportedMetricsBackend = errors.New("unsupported metrics backend")
)

// AppConfig is the configuration of the demo service.
type AppConfig struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`

	Postgres struct {
		DSN    string `yaml:"dsn"`
		Driver string `yaml:"driver"`
	} `yaml:"postgres"`

	Dispatch struct {
		UnresolvedTypeTokens string `yaml:"unresolved_type_tokens"`
		SharedBuffer         bool   `yaml:"shared_buffer"`
	} `yaml:"dispatch"`

	Publishers PublishersConfig `yaml:"publishers"`

	Observability struct {
		Metrics string `yaml:"metrics"`
		Tracing bool   `yaml:"tracing"`
	} `yaml:"observability"`

	LogLevel string `yaml:"log_level"`
}

// PublishersConfig enables the publishers of the demo service. An empty section disables its publisher.
// Retry applies to every broker publisher, max_attempts below 2 disables it.
type PublishersConfig struct {
	Log bool `yaml:"log"`

	Retry struct {
		MaxAttempts int           `yaml:"max_attempts"`
		BaseDelay   time.Duration `yaml:"base_delay"`
	} `yaml:"retry"`

	Kafka struct {
		Brokers     []string `yaml:"brokers"`
		TopicPrefix string   `yaml:"topic_prefix"`
	} `yaml:"kafka"`

	AMQP struct {
		URL      string `yaml:"url"`
		Exchange string `yaml:"exchange"`
	} `yaml:"amqp"`

	NATS struct {
		URL           string `yaml:"url"`
		SubjectPrefix string `yaml:"subject_prefix"`
	} `yaml:"nats"`

	Redis struct {
		URL    string `yaml:"url"`
		Stream string `yaml:"stream"`
	} `yaml:"redis"`
}

// DefaultAppConfig returns the configuration used when no file is given.
func DefaultAppConfig() AppConfig {
	var cfg AppConfig

	cfg.HTTP.Addr = ":8080"
	cfg.Postgres.DSN = PostgresDSN()
	cfg.Postgres.Driver = DriverPGXPool
	cfg.Dispatch.UnresolvedTypeTokens = PolicySkip
	cfg.Publishers.Log = true
	cfg.Publishers.Retry.MaxAttempts = 3
	cfg.Publishers.Retry.BaseDelay = 50 * time.Millisecond
	cfg.Publishers.Kafka.TopicPrefix = "domain-events."
	cfg.Publishers.AMQP.Exchange = "domain-events"
	cfg.Publishers.NATS.SubjectPrefix = "domain-events."
	cfg.Publishers.Redis.Stream = "domain-events"
	cfg.Observability.Metrics = MetricsNone
	cfg.LogLevel = "info"

	return cfg
}

// LoadAppConfig reads the YAML file at path on top of DefaultAppConfig.
// A missing file yields the defaults.
func LoadAppConfig(path string) (AppConfig, error) {
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg := DefaultAppConfig()
		return cfg, cfg.Validate()
	}
	if err != nil {
		return AppConfig{}, fmt.Errorf("read config file: %w", err)
	}

	return ParseAppConfig(raw)
}

// ParseAppConfig parses YAML on top of DefaultAppConfig and validates the result.
func ParseAppConfig(raw []byte) (AppConfig, error) {
	cfg := DefaultAppConfig()

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg.Publishers.Kafka.Brokers = trimNonEmpty(cfg.Publishers.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

// Validate checks the enumerated settings.
func (c AppConfig) Validate() error {
	switch c.Postgres.Driver {
	case DriverPGXPool, DriverSQLDB, DriverSQLX:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedDriver, c.Postgres.Driver)
	}

	switch c.Dispatch.UnresolvedTypeTokens {
	case PolicySkip, PolicyFail:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedPolicy, c.Dispatch.UnresolvedTypeTokens)
	}

	switch c.Observability.Metrics {
	case MetricsNone, MetricsOTel, MetricsPrometheus:
	default:
		return fmt.Errorf("%w: %q", ErrUnsupportedMetricsBackend, c.Observability.Metrics)
	}

	return nil
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, value := range values {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return out
}
