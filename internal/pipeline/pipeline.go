package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"

	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/domain"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/observability"
)

const (
	minBackoff = 200 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// BatchExtractor reads up to batchSize bulk jobs from the source.
type BatchExtractor interface {
	ExtractBatch(ctx context.Context, batchSize int) ([]domain.JobMessage, error)
}

// Transformer geocodes one bulk job.
type Transformer interface {
	Transform(ctx context.Context, msg domain.JobMessage) (domain.JobResult, error)
}

// BatchLoader publishes geocoded results.
type BatchLoader interface {
	LoadBatch(ctx context.Context, results []domain.JobResult) error
}

// Pipeline is the bulk geocoding worker. Jobs that fail to decode or geocode
// are skipped. Offsets of a batch, skipped jobs included, are committed only
// after the batch's results are published, so a failed publish is retried
// with the same results and never lost behind a later commit.
type Pipeline struct {
	extractor   BatchExtractor
	transformer Transformer
	loader      BatchLoader
	logger      *slog.Logger
	metrics     *observability.Metrics
	batchSize   int
	running     atomic.Bool
}

// New creates a Pipeline.
func New(e BatchExtractor, t Transformer, l BatchLoader, logger *slog.Logger, metrics *observability.Metrics, batchSize int) *Pipeline {
	return &Pipeline{
		extractor:   e,
		transformer: t,
		loader:      l,
		logger:      logger,
		metrics:     metrics,
		batchSize:   batchSize,
	}
}

// CheckReadiness reports ready while Run is consuming. An idle topic does
// not make the worker unready.
func (p *Pipeline) CheckReadiness(context.Context) error {
	if p.running.Load() {
		return nil
	}
	return errors.New("bulk pipeline is not running")
}

// Run consumes jobs until ctx is cancelled. It returns nil on cancellation.
func (p *Pipeline) Run(ctx context.Context) error {
	p.logger.Info("pipeline started", "batch_size", p.batchSize)
	p.metrics.PipelineRunning.Set(1)
	p.running.Store(true)
	defer func() {
		p.running.Store(false)
		p.metrics.PipelineRunning.Set(0)
	}()

	backoff := minBackoff
	for ctx.Err() == nil {
		batch, err := p.extractor.ExtractBatch(ctx, p.batchSize)
		if err != nil {
			if ctx.Err() != nil {
				break
			}
			p.logger.Error("extract batch failed", "error", err, "retry_in", backoff)
			if !retry.SleepWithContext(ctx, backoff) {
				break
			}
			backoff = retry.NextBackoff(backoff, maxBackoff)
			continue
		}
		backoff = minBackoff

		if len(batch) > 0 && !p.process(ctx, batch) {
			break
		}
	}

	p.logger.Info("pipeline stopping", "reason", ctx.Err())
	return nil
}

// process geocodes every job of batch, publishes the results and then
// commits the whole batch. It returns false if ctx ended first, leaving the
// batch uncommitted.
func (p *Pipeline) process(ctx context.Context, batch []domain.JobMessage) bool {
	start := time.Now()
	p.metrics.MessagesConsumed.Add(float64(len(batch)))
	p.metrics.BatchSize.Observe(float64(len(batch)))

	results := make([]domain.JobResult, 0, len(batch))
	for _, msg := range batch {
		res, err := p.transformer.Transform(ctx, msg)
		if ctx.Err() != nil {
			return false
		}
		if err != nil {
			p.logger.Warn("bulk job failed, skipping message",
				"error", err,
				"job_id", string(msg.Key),
				"topic", msg.Topic,
				"partition", msg.Partition,
				"offset", msg.Offset,
			)
			p.metrics.TransformErrors.Inc()
			continue
		}
		results = append(results, res)
	}

	if len(results) > 0 && !p.publish(ctx, results) {
		return false
	}
	for _, msg := range batch {
		p.commit(ctx, msg)
	}

	p.metrics.BatchProcessingDuration.Observe(time.Since(start).Seconds())
	p.logger.Debug("bulk batch done", "jobs", len(batch), "results", len(results))
	return true
}

// publish loads results, retrying the same results with backoff until it
// succeeds or ctx ends.
func (p *Pipeline) publish(ctx context.Context, results []domain.JobResult) bool {
	backoff := minBackoff
	for {
		err := p.loader.LoadBatch(ctx, results)
		if err == nil {
			p.metrics.MessagesProduced.Add(float64(len(results)))
			return true
		}
		if ctx.Err() != nil {
			return false
		}
		p.logger.Error("load batch failed", "error", err, "batch_size", len(results), "retry_in", backoff)
		if !retry.SleepWithContext(ctx, backoff) {
			return false
		}
		backoff = retry.NextBackoff(backoff, maxBackoff)
	}
}

func (p *Pipeline) commit(ctx context.Context, msg domain.JobMessage) {
	if msg.Commit == nil {
		return
	}
	if err := msg.Commit(ctx); err != nil {
		p.logger.Warn("commit offset failed", "error", err,
			"topic", msg.Topic, "partition", msg.Partition, "offset", msg.Offset)
	}
}
