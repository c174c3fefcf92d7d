package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Knowledge-base drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all configuration for the entity linker service.
// Values come from an optional YAML file; environment variables always override them.
type Config struct {
	Port      string `yaml:"port" env:"LINKER_PORT" env-default:"8080"`
	LogLevel  string `yaml:"log_level" env:"LINKER_LOG_LEVEL" env-default:"info"`
	LogFormat string `yaml:"log_format" env:"LINKER_LOG_FORMAT" env-default:"json"` // "json" or "console"

	// MaxRequestBytes caps the size of request bodies accepted by the API.
	MaxRequestBytes int64 `yaml:"max_request_bytes" env:"LINKER_MAX_REQUEST_BYTES" env-default:"1048576"`

	// JobWorkers is the number of background disambiguation jobs that may run at once.
	JobWorkers int `yaml:"job_workers" env:"LINKER_JOB_WORKERS" env-default:"4"`

	// AnalyticsPath is where run analytics are persisted. Empty keeps them in memory.
	AnalyticsPath string `yaml:"analytics_path" env:"LINKER_ANALYTICS_PATH" env-default:"./data/analytics.json"`

	KnowledgeBase KnowledgeBaseConfig `yaml:"knowledge_base"`
	Linker        LinkerSettings      `yaml:"linker"`
}

// KnowledgeBaseConfig selects and configures the candidate index / link graph backend.
type KnowledgeBaseConfig struct {
	Driver string `yaml:"driver" env:"LINKER_KB_DRIVER" env-default:"memory"`
	// DSN is a file path for sqlite and a connection string for postgres.
	DSN string `yaml:"dsn" env:"LINKER_KB_DSN" env-default:""`
	// FixturePath seeds the memory driver from a YAML fixture.
	FixturePath string `yaml:"fixture_path" env:"LINKER_KB_FIXTURE" env-default:""`
	// SnapshotPath loads (and saves) the memory driver from a gob snapshot.
	SnapshotPath string `yaml:"snapshot_path" env:"LINKER_KB_SNAPSHOT" env-default:""`

	MaxConnections int32 `yaml:"max_connections" env:"LINKER_KB_MAX_CONNECTIONS" env-default:"10"`

	// Lookup cache shared across requests; knowledge-base data is read-only while serving.
	CacheTTL      time.Duration `yaml:"cache_ttl" env:"LINKER_KB_CACHE_TTL" env-default:"10m"`
	CacheCapacity uint64        `yaml:"cache_capacity" env:"LINKER_KB_CACHE_CAPACITY" env-default:"100000"`
}

// Load reads configuration from path (when it exists) with environment variable overrides.
// An empty path reads the environment only.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := cleanenv.ReadConfig(path, cfg); err != nil {
				return nil, fmt.Errorf("failed to read %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat %s: %w", path, err)
		} else if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else if err := cleanenv.ReadEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.Linker.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the service configuration and the embedded linker settings.
func (c *Config) Validate() error {
	var problems []string

	switch c.KnowledgeBase.Driver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.KnowledgeBase.DSN == "" {
			problems = append(problems, "knowledge_base.dsn is required for driver '"+c.KnowledgeBase.Driver+"'")
		}
	default:
		problems = append(problems, "unknown knowledge_base.driver '"+c.KnowledgeBase.Driver+"'")
	}
	if c.JobWorkers < 1 {
		problems = append(problems, "job_workers must be at least 1")
	}
	problems = append(problems, c.Linker.Validate()...)

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
