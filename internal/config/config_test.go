package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	v.Set("JWT_SECRET", "secret")

	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.AppPort)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, BrokerNone, cfg.EventsBroker)
	assert.Equal(t, "pharmacy.events", cfg.RabbitExchange)
	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "pharmacy.notifications", cfg.KafkaTopic)
	assert.True(t, cfg.AuthEnabled)
	assert.Equal(t, 256, cfg.NotifyQueueSize)
	assert.Equal(t, 2, cfg.NotifyWorkers)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.True(t, cfg.SeedData)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "SQLite")
	t.Setenv("EVENTS_BROKER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("AUTH_ENABLED", "false")
	t.Setenv("NOTIFY_WORKERS", "4")

	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, DriverSQLite, cfg.StorageDriver)
	assert.Equal(t, "file:pharmacy.db?cache=shared", cfg.DatabaseDSN)
	assert.Equal(t, BrokerKafka, cfg.EventsBroker)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.False(t, cfg.AuthEnabled)
	assert.Equal(t, 4, cfg.NotifyWorkers)
}

func TestLoad_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pharmacy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("APP_PORT: \":9090\"\nAUTH_ENABLED: false\nLOG_LEVEL: debug\n"), 0o644))

	v := viper.New()
	v.Set("CONFIG_FILE", path)
	cfg, err := Load(v)
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.AppPort)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]map[string]any{
		"unknown driver":    {"STORAGE_DRIVER": "mongo", "AUTH_ENABLED": false},
		"postgres no dsn":   {"STORAGE_DRIVER": "postgres", "AUTH_ENABLED": false},
		"unknown broker":    {"EVENTS_BROKER": "nats", "AUTH_ENABLED": false},
		"missing secret":    {"AUTH_ENABLED": true},
		"zero queue":        {"NOTIFY_QUEUE_SIZE": 0, "AUTH_ENABLED": false},
		"negative workers":  {"NOTIFY_WORKERS": -1, "AUTH_ENABLED": false},
		"missing file":      {"CONFIG_FILE": "/nonexistent/pharmacy.yaml", "AUTH_ENABLED": false},
	}
	for name, values := range cases {
		t.Run(name, func(t *testing.T) {
			v := viper.New()
			for k, val := range values {
				v.Set(k, val)
			}
			_, err := Load(v)
			assert.Error(t, err)
		})
	}
}
