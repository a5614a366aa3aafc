package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"

	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/domain"
)

const maxBulkBody = 1 << 20

func (s *Server) handleAutocomplete(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := domain.SuggestRequest{Credentials: s.creds, Text: q.Get("text")}

	var err error
	if req.FocusPoint, err = parsePoint(q, "focus.point"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Boundary, err = parseBoundary(q); err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.geocoder.Autocomplete(r.Context(), req)
	s.respond(w, r, out, err)
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := domain.SearchRequest{
		Credentials: s.creds,
		Text:        q.Get("text"),
		MagicKey:    q.Get("magic_key"),
	}

	var err error
	if req.FocusPoint, err = parsePoint(q, "focus.point"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Boundary, err = parseBoundary(q); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ForStorage, err = parseBool(q, "for_storage"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if v := q.Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			s.writeError(w, r, invalidParam("size", v))
			return
		}
		req.Size = domain.Size(n)
	}

	out, err := s.geocoder.Search(r.Context(), req)
	s.respond(w, r, out, err)
}

func (s *Server) handleReverse(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := domain.ReverseRequest{Credentials: s.creds}

	var err error
	if req.Point, err = parsePoint(q, "point"); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.ForStorage, err = parseBool(q, "for_storage"); err != nil {
		s.writeError(w, r, err)
		return
	}

	out, err := s.geocoder.Reverse(r.Context(), req)
	s.respond(w, r, out, err)
}

// bulkBody is the JSON body of POST /v1/bulk. Credentials are never read
// from the body.
type bulkBody struct {
	Addresses  []domain.AddressInput `json:"addresses"`
	Boundary   *domain.Boundary      `json:"boundary"`
	FocusPoint *domain.Point         `json:"focusPoint"`
}

func (s *Server) handleBulk(w http.ResponseWriter, r *http.Request) {
	var body bulkBody
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBulkBody)).Decode(&body); err != nil {
		s.writeError(w, r, fmt.Errorf("%w: decode body: %w", domain.ErrInvalidRequest, err))
		return
	}

	out, err := s.geocoder.Bulk(r.Context(), domain.BulkRequest{
		Credentials: s.creds,
		Addresses:   body.Addresses,
		Boundary:    body.Boundary,
		FocusPoint:  body.FocusPoint,
	})
	s.respond(w, r, out, err)
}

func (s *Server) respond(w http.ResponseWriter, r *http.Request, v any, err error) {
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	sharedobs.WriteJSON(w, http.StatusOK, v)
}

// writeError maps err to a status: 400 for invalid input, 504 for timeouts
// and 502 for provider or response failures.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		s.logger.Error("geocoding request failed", "request_id", RequestID(r.Context()), "path", r.URL.Path, "error", err)
	}
	sharedobs.WriteJSON(w, status, map[string]string{"error": err.Error()})
}

func invalidParam(name, value string) error {
	return fmt.Errorf("%w: %s: invalid value %q", domain.ErrInvalidRequest, name, value)
}

// parsePoint reads <prefix>.lat and <prefix>.lon. Both or neither must be set.
func parsePoint(q url.Values, prefix string) (*domain.Point, error) {
	latKey, lonKey := prefix+".lat", prefix+".lon"
	lat, lon := q.Get(latKey), q.Get(lonKey)
	if lat == "" && lon == "" {
		return nil, nil
	}
	if lat == "" || lon == "" {
		return nil, fmt.Errorf("%w: %s and %s must be set together", domain.ErrInvalidRequest, latKey, lonKey)
	}

	var p domain.Point
	var err error
	if p.Lat, err = strconv.ParseFloat(lat, 64); err != nil {
		return nil, invalidParam(latKey, lat)
	}
	if p.Lon, err = strconv.ParseFloat(lon, 64); err != nil {
		return nil, invalidParam(lonKey, lon)
	}
	return &p, nil
}

// parseBoundary reads the four boundary.rect.* parameters. All or none must be set.
func parseBoundary(q url.Values) (*domain.Boundary, error) {
	keys := []string{"boundary.rect.min_lat", "boundary.rect.min_lon", "boundary.rect.max_lat", "boundary.rect.max_lon"}
	values := make([]float64, len(keys))
	set := 0
	for i, k := range keys {
		v := q.Get(k)
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, invalidParam(k, v)
		}
		values[i] = f
		set++
	}

	switch set {
	case 0:
		return nil, nil
	case len(keys):
		return &domain.Boundary{Rect: domain.Rect{
			MinLat: values[0],
			MinLon: values[1],
			MaxLat: values[2],
			MaxLon: values[3],
		}}, nil
	default:
		return nil, fmt.Errorf("%w: boundary.rect needs min_lat, min_lon, max_lat and max_lon", domain.ErrInvalidRequest)
	}
}

func parseBool(q url.Values, key string) (bool, error) {
	v := q.Get(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, invalidParam(key, v)
	}
	return b, nil
}
