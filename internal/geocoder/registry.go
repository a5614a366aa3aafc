package geocoder

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/domain"
)

// Factory constructs a provider client for one credentials tuple.
type Factory func(domain.Credentials) domain.Provider

// Registry memoizes one provider client per (client ID, client secret, URL)
// tuple so token caches and rate limiters are shared by every caller using
// the same credentials. Entries are never evicted.
type Registry struct {
	factory Factory
	gauge   prometheus.Gauge

	mu      sync.Mutex
	clients map[domain.Credentials]domain.Provider
}

// NewRegistry creates an empty registry. gauge may be nil.
func NewRegistry(factory Factory, gauge prometheus.Gauge) *Registry {
	return &Registry{
		factory: factory,
		gauge:   gauge,
		clients: make(map[domain.Credentials]domain.Provider),
	}
}

// Get returns the client for creds, constructing it on first use. The
// factory runs under the lock so concurrent first use yields one client.
func (r *Registry) Get(creds domain.Credentials) domain.Provider {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.clients[creds]; ok {
		return p
	}
	p := r.factory(creds)
	r.clients[creds] = p
	r.setGauge()
	return p
}

// Len returns the number of memoized clients.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Reset drops every memoized client.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.clients)
	r.setGauge()
}

func (r *Registry) setGauge() {
	if r.gauge != nil {
		r.gauge.Set(float64(len(r.clients)))
	}
}
