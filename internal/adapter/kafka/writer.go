package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/config"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/domain"
)

// Writer produces geocoded bulk results to a Kafka topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes all results in a single WriteMessages call. Results are
// keyed by job ID so every result of a job lands on the same partition.
func (w *Writer) LoadBatch(ctx context.Context, results []domain.JobResult) error {
	if len(results) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(results))
	for i := range results {
		msg, err := serializeToMessage(results[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write messages: %w", err)
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a JobResult's feature collection into a Kafka message.
func serializeToMessage(result domain.JobResult) (kafkago.Message, error) {
	data, err := json.Marshal(result.Collection)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize bulk result %s: %w", result.JobID, err)
	}
	return kafkago.Message{
		Key:   []byte(result.JobID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "job_id", Value: []byte(result.JobID)},
			{Key: "feature_count", Value: []byte(strconv.Itoa(len(result.Collection.Features)))},
			{Key: "processed_at", Value: []byte(result.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
