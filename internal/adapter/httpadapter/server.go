package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/domain"
)

// Geocoder is the geocoding service the API serves.
type Geocoder interface {
	Autocomplete(ctx context.Context, req domain.SuggestRequest) (domain.SuggestionCollection, error)
	Search(ctx context.Context, req domain.SearchRequest) (domain.FeatureCollection[domain.TextQuery], error)
	Reverse(ctx context.Context, req domain.ReverseRequest) (domain.FeatureCollection[domain.Point], error)
	Bulk(ctx context.Context, req domain.BulkRequest) (domain.FeatureCollection[domain.AddressQuery], error)
}

// Server exposes the geocoding API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	geocoder   Geocoder
	creds      domain.Credentials
	logger     *slog.Logger
}

// NewServer creates an HTTP server. Every geocoding call is made with creds,
// the server's own provider credentials.
func NewServer(addr string, geocoder Geocoder, creds domain.Credentials, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      withRequestLogging(mux, logger),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		geocoder: geocoder,
		creds:    creds,
		logger:   logger,
	}

	mux.HandleFunc("GET /v1/autocomplete", s.handleAutocomplete)
	mux.HandleFunc("GET /v1/search", s.handleSearch)
	mux.HandleFunc("GET /v1/reverse", s.handleReverse)
	mux.HandleFunc("POST /v1/bulk", s.handleBulk)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}
