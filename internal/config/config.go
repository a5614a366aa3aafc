package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/adapter/arcgis"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// ArcGIS provider configuration.
	ArcGISClientID     string
	ArcGISClientSecret string
	ArcGISURL          string
	ArcGISAuthURL      string
	ArcGISTimeout      time.Duration
	ArcGISRateLimit    float64

	// Bulk pipeline configuration. The pipeline only runs when KafkaEnabled.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSourceTopic   string
	KafkaSinkTopic     string
	KafkaGroupID       string
	BatchSize          int
	BatchFlushInterval time.Duration
}

// Credentials returns the provider credentials the service calls ArcGIS with.
func (c *Config) Credentials() domain.Credentials {
	return domain.Credentials{
		ClientID:     c.ArcGISClientID,
		ClientSecret: c.ArcGISClientSecret,
		URL:          c.ArcGISURL,
	}
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	arcgisTimeout, err := time.ParseDuration(sharedcfg.EnvOrDefault("ARCGIS_TIMEOUT", "5s"))
	if err != nil || arcgisTimeout <= 0 {
		return nil, errors.New("invalid ARCGIS_TIMEOUT")
	}

	rateLimit, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("ARCGIS_RATE_LIMIT", "10"), 64)
	if err != nil || rateLimit < 0 {
		return nil, errors.New("invalid ARCGIS_RATE_LIMIT")
	}

	batchSize, err := sharedcfg.ParseBatchSize()
	if err != nil {
		return nil, err
	}

	flushInterval, err := sharedcfg.ParseBatchFlushInterval()
	if err != nil {
		return nil, err
	}

	kafkaEnabled := os.Getenv("KAFKA_BROKERS") != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("invalid KAFKA_ENABLED: %w", err)
		}
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		ArcGISClientID:     os.Getenv("ARCGIS_CLIENT_ID"),
		ArcGISClientSecret: os.Getenv("ARCGIS_CLIENT_SECRET"),
		ArcGISURL:          sharedcfg.EnvOrDefault("ARCGIS_URL", arcgis.DefaultURL),
		ArcGISAuthURL:      sharedcfg.EnvOrDefault("ARCGIS_AUTH_URL", arcgis.DefaultAuthURL),
		ArcGISTimeout:      arcgisTimeout,
		ArcGISRateLimit:    rateLimit,

		KafkaEnabled:       kafkaEnabled,
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSourceTopic:   sharedcfg.EnvOrDefault("KAFKA_SOURCE_TOPIC", "bulk-geocode-requests"),
		KafkaSinkTopic:     sharedcfg.EnvOrDefault("KAFKA_SINK_TOPIC", "bulk-geocode-results"),
		KafkaGroupID:       sharedcfg.EnvOrDefault("KAFKA_GROUP_ID", "geocoder-arcgis-geojson"),
		BatchSize:          batchSize,
		BatchFlushInterval: flushInterval,
	}

	if (cfg.ArcGISClientID == "") != (cfg.ArcGISClientSecret == "") {
		return nil, errors.New("ARCGIS_CLIENT_ID and ARCGIS_CLIENT_SECRET must be set together")
	}
	if !cfg.KafkaEnabled {
		return cfg, nil
	}

	if len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	if cfg.KafkaSourceTopic == "" {
		return nil, errors.New("KAFKA_SOURCE_TOPIC is required")
	}
	if cfg.KafkaSinkTopic == "" {
		return nil, errors.New("KAFKA_SINK_TOPIC is required")
	}
	if cfg.ArcGISClientID == "" {
		return nil, errors.New("KAFKA_ENABLED requires ARCGIS_CLIENT_ID and ARCGIS_CLIENT_SECRET for bulk geocoding")
	}

	return cfg, nil
}
