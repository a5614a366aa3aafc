package geocoder

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/domain"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/observability"
)

func countingFactory(calls *atomic.Int32) Factory {
	return func(domain.Credentials) domain.Provider {
		calls.Add(1)
		return &mockProvider{}
	}
}

func TestRegistry_ReusesClientPerTuple(t *testing.T) {
	var calls atomic.Int32
	metrics := observability.NewMetricsForTesting()
	r := NewRegistry(countingFactory(&calls), metrics.RegistryClients)

	a := domain.Credentials{ClientID: "c", ClientSecret: "s"}
	first := r.Get(a)
	second := r.Get(a)
	assert.Same(t, first, second)
	assert.Equal(t, int32(1), calls.Load())

	otherURL := r.Get(domain.Credentials{ClientID: "c", ClientSecret: "s", URL: "https://example.com"})
	assert.NotSame(t, first, otherURL)
	otherSecret := r.Get(domain.Credentials{ClientID: "c", ClientSecret: "t"})
	assert.NotSame(t, first, otherSecret)

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 3.0, testutil.ToFloat64(metrics.RegistryClients))
}

func TestRegistry_ConcurrentFirstUse(t *testing.T) {
	var calls atomic.Int32
	r := NewRegistry(countingFactory(&calls), nil)
	creds := domain.Credentials{ClientID: "c", ClientSecret: "s"}

	providers := make([]domain.Provider, 50)
	var wg sync.WaitGroup
	for i := range providers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			providers[i] = r.Get(creds)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, p := range providers {
		assert.Same(t, providers[0], p)
	}
}

func TestRegistry_Reset(t *testing.T) {
	var calls atomic.Int32
	metrics := observability.NewMetricsForTesting()
	r := NewRegistry(countingFactory(&calls), metrics.RegistryClients)

	before := r.Get(domain.Credentials{})
	r.Reset()
	assert.Equal(t, 0, r.Len())
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.RegistryClients))

	after := r.Get(domain.Credentials{})
	assert.NotSame(t, before, after)
	assert.Equal(t, int32(2), calls.Load())
}
