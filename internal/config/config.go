package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"aptintel/internal/fetch"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "aptintel.yaml"

// Config holds all aptintel configuration.
type Config struct {
	// Directory holding the source snapshots
	DataDir string `yaml:"data_dir"`
	// Directory receiving downloaded TTP layers
	ArtifactsDir string `yaml:"artifacts_dir"`
	// Directory receiving search reports
	ReportDir string `yaml:"report_dir"`

	Sources SourcesConfig `yaml:"sources"`
	HTTP    HTTPConfig    `yaml:"http"`
	Kafka   KafkaConfig   `yaml:"kafka"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

// SourcesConfig holds the remote locations of the two sources.
type SourcesConfig struct {
	MitreURL   string `yaml:"mitre_url"`
	TrackerURL string `yaml:"tracker_url"`
}

// HTTPConfig configures downloads.
type HTTPConfig struct {
	Timeout string `yaml:"timeout"`
}

// KafkaConfig configures result publishing. Publishing is off without a broker.
type KafkaConfig struct {
	Broker string `yaml:"broker"`
	Topic  string `yaml:"topic"`
}

// ServerConfig configures the search API.
type ServerConfig struct {
	ListenAddr string `yaml:"listen_addr"`
}

// LogConfig configures the logger.
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// DefaultConfig returns the built-in configuration.
func DefaultConfig() *Config {
	return &Config{
		DataDir:      ".",
		ArtifactsDir: "jsons",
		ReportDir:    ".",
		Sources: SourcesConfig{
			MitreURL:   fetch.DefaultMitreURL,
			TrackerURL: fetch.DefaultTrackerURL,
		},
		HTTP:   HTTPConfig{Timeout: "60s"},
		Kafka:  KafkaConfig{Topic: "apt-groups"},
		Server: ServerConfig{ListenAddr: ":8080"},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path, then applies .env and environment
// overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	// .env is optional
	_ = godotenv.Load()

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("APTINTEL_DATA_DIR"); v != "" {
		c.DataDir = v
	}
	if v := os.Getenv("APTINTEL_ARTIFACTS_DIR"); v != "" {
		c.ArtifactsDir = v
	}
	if v := os.Getenv("APTINTEL_REPORT_DIR"); v != "" {
		c.ReportDir = v
	}
	if v := os.Getenv("APTINTEL_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("APTINTEL_LISTEN_ADDR"); v != "" {
		c.Server.ListenAddr = v
	}
	if v := os.Getenv("KAFKA_BROKER"); v != "" {
		c.Kafka.Broker = v
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
}

// Validate checks values that cannot be defaulted.
func (c *Config) Validate() error {
	if _, err := c.HTTPTimeout(); err != nil {
		return err
	}
	if c.Kafka.Broker != "" && c.Kafka.Topic == "" {
		return fmt.Errorf("kafka.topic is required when kafka.broker is set")
	}
	return nil
}

// HTTPTimeout parses the download timeout.
func (c *Config) HTTPTimeout() (time.Duration, error) {
	d, err := time.ParseDuration(c.HTTP.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid http.timeout %q: %w", c.HTTP.Timeout, err)
	}
	return d, nil
}

// MitreSnapshot is the path of the cached knowledge base.
func (c *Config) MitreSnapshot() string {
	return filepath.Join(c.DataDir, fetch.MitreFileName)
}

// TrackerSnapshot is the path of the cached tracker spreadsheet.
func (c *Config) TrackerSnapshot() string {
	return filepath.Join(c.DataDir, fetch.TrackerFileName)
}
