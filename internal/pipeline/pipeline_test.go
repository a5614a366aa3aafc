package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/domain"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/observability"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.JobMessage
	errs    []error
	calls   atomic.Int64
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.JobMessage, error) {
	i := int(m.calls.Add(1) - 1)
	if i < len(m.errs) && m.errs[i] != nil {
		return nil, m.errs[i]
	}
	if i >= len(m.batches) {
		// block until cancelled to simulate an idle topic
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	failKeys map[string]bool
}

func (m *mockTransformer) Transform(_ context.Context, msg domain.JobMessage) (domain.JobResult, error) {
	if m.failKeys[string(msg.Key)] {
		return domain.JobResult{}, errors.New("bad job")
	}
	return domain.JobResult{JobID: string(msg.Key)}, nil
}

type mockLoader struct {
	mu       sync.Mutex
	loaded   []domain.JobResult
	failures int
	calls    int
}

func (m *mockLoader) LoadBatch(_ context.Context, results []domain.JobResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.failures {
		return errors.New("broker unavailable")
	}
	m.loaded = append(m.loaded, results...)
	return nil
}

func (m *mockLoader) attempts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockLoader) jobIDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]string, len(m.loaded))
	for i, r := range m.loaded {
		ids[i] = r.JobID
	}
	return ids
}

type commitCounter struct {
	mu      sync.Mutex
	offsets []int64
}

func (c *commitCounter) message(key string, offset int64) domain.JobMessage {
	return domain.JobMessage{
		Key:    []byte(key),
		Topic:  "geocode-jobs",
		Offset: offset,
		Commit: func(context.Context) error {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.offsets = append(c.offsets, offset)
			return nil
		},
	}
}

func (c *commitCounter) committed() []int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]int64(nil), c.offsets...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	commits := &commitCounter{}
	ext := &mockExtractor{batches: [][]domain.JobMessage{{
		commits.message("job-1", 1),
		commits.message("job-2", 2),
	}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Equal(t, []string{"job-1", "job-2"}, ldr.jobIDs())
	assert.Equal(t, []int64{1, 2}, commits.committed())
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.MessagesConsumed), 0)
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.MessagesProduced), 0)
	assert.InDelta(t, 0.0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.jobIDs())
}

func TestPipeline_Run_TransformErrorSkipsAndCommits(t *testing.T) {
	commits := &commitCounter{}
	ext := &mockExtractor{batches: [][]domain.JobMessage{{
		commits.message("bad", 7),
		commits.message("good", 8),
	}}}
	tfm := &mockTransformer{failKeys: map[string]bool{"bad": true}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, tfm, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Equal(t, []string{"good"}, ldr.jobIDs())
	assert.Equal(t, []int64{7, 8}, commits.committed())
	assert.InDelta(t, 1.0, testutil.ToFloat64(metrics.TransformErrors), 0)
}

func TestPipeline_Run_AllJobsFail(t *testing.T) {
	commits := &commitCounter{}
	ext := &mockExtractor{batches: [][]domain.JobMessage{{commits.message("bad", 3)}}}
	tfm := &mockTransformer{failKeys: map[string]bool{"bad": true}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.jobIDs())
	assert.Equal(t, []int64{3}, commits.committed())
}

func TestPipeline_Run_LoadFailureDoesNotCommit(t *testing.T) {
	commits := &commitCounter{}
	ext := &mockExtractor{batches: [][]domain.JobMessage{{commits.message("job-1", 1)}}}
	ldr := &mockLoader{failures: 1000}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, commits.committed())
	assert.GreaterOrEqual(t, ldr.attempts(), 2)
	assert.Equal(t, int64(1), ext.calls.Load(), "no new batch is fetched while the previous one is unpublished")
}

func TestPipeline_Run_SkippedJobNotCommittedBeforePublish(t *testing.T) {
	commits := &commitCounter{}
	ext := &mockExtractor{batches: [][]domain.JobMessage{{
		commits.message("ok", 10),
		commits.message("bad", 11),
	}}}
	tfm := &mockTransformer{failKeys: map[string]bool{"bad": true}}
	ldr := &mockLoader{failures: 1000}

	p := pipeline.New(ext, tfm, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.jobIDs())
	assert.Empty(t, commits.committed())
}

func TestPipeline_Run_RetriesSameBatchAfterLoadFailure(t *testing.T) {
	commits := &commitCounter{}
	ext := &mockExtractor{batches: [][]domain.JobMessage{
		{commits.message("a", 1)},
		{commits.message("b", 2)},
	}}
	ldr := &mockLoader{failures: 1}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)
	runFor(t, p, time.Second)

	assert.Equal(t, []string{"a", "b"}, ldr.jobIDs())
	assert.Equal(t, []int64{1, 2}, commits.committed())
	assert.InDelta(t, 2.0, testutil.ToFloat64(metrics.MessagesProduced), 0)
}

func TestPipeline_Run_RetriesAfterExtractError(t *testing.T) {
	commits := &commitCounter{}
	ext := &mockExtractor{
		errs: []error{errors.New("broker down")},
		batches: [][]domain.JobMessage{
			nil,
			{commits.message("job-1", 1)},
		},
	}
	ldr := &mockLoader{}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, time.Second)

	assert.Equal(t, []string{"job-1"}, ldr.jobIDs())
	assert.GreaterOrEqual(t, ext.calls.Load(), int64(2))
}

func TestPipeline_CheckReadiness(t *testing.T) {
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, &mockLoader{}, discardLogger(), observability.NewMetricsForTesting(), 10)
	err := p.CheckReadiness(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not running")

	// an idle topic still counts as ready
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Run(ctx) }()
	assert.Eventually(t, func() bool {
		return p.CheckReadiness(context.Background()) == nil
	}, time.Second, 10*time.Millisecond)

	cancel()
	require.NoError(t, <-done)
	assert.Error(t, p.CheckReadiness(context.Background()))
}
