package arcgis

import (
	"context"
	"time"

	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/domain"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/observability"
)

// Instrumented wraps a Provider and records request outcome and latency per
// operation.
type Instrumented struct {
	inner   domain.Provider
	metrics *observability.Metrics
}

// NewInstrumented creates a metrics decorator around a provider.
func NewInstrumented(inner domain.Provider, metrics *observability.Metrics) *Instrumented {
	return &Instrumented{inner: inner, metrics: metrics}
}

func (i *Instrumented) Suggest(ctx context.Context, text string, params domain.SuggestParams) (domain.SuggestResponse, error) {
	start := time.Now()
	resp, err := i.inner.Suggest(ctx, text, params)
	i.observe("suggest", start, len(resp.Suggestions), err)
	return resp, err
}

func (i *Instrumented) FindAddressCandidates(ctx context.Context, text string, params domain.FindParams) (domain.FindResponse, error) {
	start := time.Now()
	resp, err := i.inner.FindAddressCandidates(ctx, text, params)
	i.observe("find", start, len(resp.Candidates), err)
	return resp, err
}

func (i *Instrumented) GeocodeAddresses(ctx context.Context, addresses []domain.AddressInput, params domain.BatchParams) (domain.BatchResponse, error) {
	start := time.Now()
	resp, err := i.inner.GeocodeAddresses(ctx, addresses, params)
	i.observe("batch", start, len(resp.Locations), err)
	return resp, err
}

func (i *Instrumented) ReverseGeocode(ctx context.Context, point string, params domain.ReverseParams) (domain.ReverseResponse, error) {
	start := time.Now()
	resp, err := i.inner.ReverseGeocode(ctx, point, params)
	n := 0
	if resp.Location != nil {
		n = 1
	}
	i.observe("reverse", start, n, err)
	return resp, err
}

func (i *Instrumented) observe(operation string, start time.Time, results int, err error) {
	i.metrics.GeocodeAPIDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
	outcome := "success"
	switch {
	case err != nil:
		outcome = "error"
	case results == 0:
		outcome = "empty"
	}
	i.metrics.GeocodeRequests.WithLabelValues(operation, outcome).Inc()
}
