package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/adapter/arcgis"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/domain"
)

const (
	defaultBroker    = "localhost:9092"
	testClientID     = "client-id"
	testClientSecret = "client-secret"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)

	assert.Empty(t, cfg.ArcGISClientID)
	assert.Empty(t, cfg.ArcGISClientSecret)
	assert.Equal(t, arcgis.DefaultURL, cfg.ArcGISURL)
	assert.Equal(t, arcgis.DefaultAuthURL, cfg.ArcGISAuthURL)
	assert.Equal(t, 5*time.Second, cfg.ArcGISTimeout)
	assert.Equal(t, 10.0, cfg.ArcGISRateLimit)

	assert.False(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)
	assert.Equal(t, "bulk-geocode-requests", cfg.KafkaSourceTopic)
	assert.Equal(t, "bulk-geocode-results", cfg.KafkaSinkTopic)
	assert.Equal(t, "geocoder-arcgis-geojson", cfg.KafkaGroupID)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")
	t.Setenv("ARCGIS_CLIENT_ID", testClientID)
	t.Setenv("ARCGIS_CLIENT_SECRET", testClientSecret)
	t.Setenv("ARCGIS_URL", "https://geocode.example.com/GeocodeServer")
	t.Setenv("ARCGIS_AUTH_URL", "https://auth.example.com/token")
	t.Setenv("ARCGIS_TIMEOUT", "10s")
	t.Setenv("ARCGIS_RATE_LIMIT", "2.5")
	t.Setenv("KAFKA_BROKERS", "broker1:9092,broker2:9092")
	t.Setenv("KAFKA_SOURCE_TOPIC", "custom-source")
	t.Setenv("KAFKA_SINK_TOPIC", "custom-sink")
	t.Setenv("KAFKA_GROUP_ID", "custom-group")
	t.Setenv("BATCH_SIZE", "100")
	t.Setenv("BATCH_FLUSH_INTERVAL", "1s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, "https://auth.example.com/token", cfg.ArcGISAuthURL)
	assert.Equal(t, 10*time.Second, cfg.ArcGISTimeout)
	assert.Equal(t, 2.5, cfg.ArcGISRateLimit)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-source", cfg.KafkaSourceTopic)
	assert.Equal(t, "custom-sink", cfg.KafkaSinkTopic)
	assert.Equal(t, "custom-group", cfg.KafkaGroupID)
	assert.Equal(t, 100, cfg.BatchSize)
	assert.Equal(t, time.Second, cfg.BatchFlushInterval)

	assert.Equal(t, domain.Credentials{
		ClientID:     testClientID,
		ClientSecret: testClientSecret,
		URL:          "https://geocode.example.com/GeocodeServer",
	}, cfg.Credentials())
}

func TestLoad_InvalidShutdownTimeout(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "not-a-duration")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_InvalidArcGISTimeout(t *testing.T) {
	for _, v := range []string{"soon", "0s", "-1s"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("ARCGIS_TIMEOUT", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "ARCGIS_TIMEOUT")
		})
	}
}

func TestLoad_InvalidRateLimit(t *testing.T) {
	for _, v := range []string{"fast", "-1"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("ARCGIS_RATE_LIMIT", v)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "ARCGIS_RATE_LIMIT")
		})
	}
}

func TestLoad_RateLimitZeroDisables(t *testing.T) {
	t.Setenv("ARCGIS_RATE_LIMIT", "0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.0, cfg.ArcGISRateLimit)
}

func TestLoad_InvalidBatchSize(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"zero", "0"},
		{"too large", "9999"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("BATCH_SIZE", tt.value)
			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "BATCH_SIZE")
		})
	}
}

func TestLoad_InvalidBatchFlushInterval(t *testing.T) {
	t.Setenv("BATCH_FLUSH_INTERVAL", "later")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BATCH_FLUSH_INTERVAL")
}

func TestLoad_PartialCredentials(t *testing.T) {
	t.Setenv("ARCGIS_CLIENT_ID", testClientID)
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARCGIS_CLIENT_SECRET")
}

func TestLoad_KafkaRequiresCredentials(t *testing.T) {
	t.Setenv("KAFKA_BROKERS", "broker:9092")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ARCGIS_CLIENT_ID")
}

func TestLoad_KafkaEnabledOverride(t *testing.T) {
	t.Setenv("ARCGIS_CLIENT_ID", testClientID)
	t.Setenv("ARCGIS_CLIENT_SECRET", testClientSecret)
	t.Setenv("KAFKA_ENABLED", "true")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.KafkaEnabled)
	assert.Equal(t, []string{defaultBroker}, cfg.KafkaBrokers)

	t.Setenv("KAFKA_BROKERS", "broker:9092")
	t.Setenv("KAFKA_ENABLED", "false")
	cfg, err = Load()
	require.NoError(t, err)
	assert.False(t, cfg.KafkaEnabled)
}

func TestLoad_InvalidKafkaEnabled(t *testing.T) {
	t.Setenv("KAFKA_ENABLED", "sometimes")
	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KAFKA_ENABLED")
}
