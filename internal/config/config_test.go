package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"APTINTEL_DATA_DIR", "APTINTEL_ARTIFACTS_DIR", "APTINTEL_REPORT_DIR",
		"APTINTEL_LOG_LEVEL", "APTINTEL_LISTEN_ADDR", "KAFKA_BROKER", "KAFKA_TOPIC",
	} {
		t.Setenv(key, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "jsons", cfg.ArtifactsDir)
	assert.Equal(t, "apt-groups", cfg.Kafka.Topic)
	assert.Empty(t, cfg.Kafka.Broker)
	assert.Equal(t, filepath.Join(".", "enterprise-attack.json"), cfg.MitreSnapshot())
	assert.Equal(t, filepath.Join(".", "APT Groups and Operations.xlsx"), cfg.TrackerSnapshot())

	timeout, err := cfg.HTTPTimeout()
	require.NoError(t, err)
	assert.Equal(t, time.Minute, timeout)
}

func TestLoad(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()

	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(dir, "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("file values override defaults", func(t *testing.T) {
		path := filepath.Join(dir, "aptintel.yaml")
		content := "data_dir: /var/lib/aptintel\nhttp:\n  timeout: 5s\nkafka:\n  broker: localhost:9092\n"
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "/var/lib/aptintel", cfg.DataDir)
		assert.Equal(t, "localhost:9092", cfg.Kafka.Broker)
		assert.Equal(t, "apt-groups", cfg.Kafka.Topic)
		assert.Equal(t, "jsons", cfg.ArtifactsDir)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("data_dir: [unterminated"), 0644))
		_, err := Load(path)
		assert.Error(t, err)
	})

	t.Run("invalid timeout", func(t *testing.T) {
		path := filepath.Join(dir, "timeout.yaml")
		require.NoError(t, os.WriteFile(path, []byte("http:\n  timeout: soon\n"), 0644))
		_, err := Load(path)
		assert.ErrorContains(t, err, "http.timeout")
	})
}

func TestEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("APTINTEL_DATA_DIR", "/data")
	t.Setenv("KAFKA_BROKER", "kafka:9092")
	t.Setenv("KAFKA_TOPIC", "groups")

	cfg := DefaultConfig()
	cfg.applyEnvOverrides()

	assert.Equal(t, "/data", cfg.DataDir)
	assert.Equal(t, "kafka:9092", cfg.Kafka.Broker)
	assert.Equal(t, "groups", cfg.Kafka.Topic)
	assert.Equal(t, ":8080", cfg.Server.ListenAddr)
}
