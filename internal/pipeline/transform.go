package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/domain"
)

// Bulker runs a batch geocode; geocoder.Service implements it.
type Bulker interface {
	Bulk(ctx context.Context, req domain.BulkRequest) (domain.FeatureCollection[domain.AddressQuery], error)
}

// BulkTransformer implements Transformer by decoding a job and geocoding its
// addresses with the worker's credentials.
type BulkTransformer struct {
	bulker Bulker
	creds  domain.Credentials
	logger *slog.Logger
}

// NewTransformer creates a BulkTransformer.
func NewTransformer(bulker Bulker, creds domain.Credentials, logger *slog.Logger) *BulkTransformer {
	return &BulkTransformer{
		bulker: bulker,
		creds:  creds,
		logger: logger,
	}
}

func (t *BulkTransformer) Transform(ctx context.Context, msg domain.JobMessage) (domain.JobResult, error) {
	var job domain.BulkJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		return domain.JobResult{}, fmt.Errorf("decode bulk job: %w", err)
	}

	fc, err := t.bulker.Bulk(ctx, job.Request(t.creds))
	if err != nil {
		return domain.JobResult{}, fmt.Errorf("geocode bulk job: %w", err)
	}

	id := jobID(msg)
	t.logger.Debug("bulk job geocoded", "job_id", id, "features", len(fc.Features))
	return domain.JobResult{
		JobID:       id,
		Collection:  fc,
		ProcessedAt: domain.Now(),
	}, nil
}

// jobID is the message key, or topic/partition/offset for unkeyed messages.
func jobID(msg domain.JobMessage) string {
	if len(msg.Key) > 0 {
		return string(msg.Key)
	}
	return fmt.Sprintf("%s-%d-%d", msg.Topic, msg.Partition, msg.Offset)
}
