// Package geocoder exposes the four geocoding operations: each call validates
// the request, derives the provider parameters, looks up the client for the
// caller's credentials and translates the response to GeoJSON.
package geocoder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/domain"
)

// Service runs geocoding operations against the provider clients held by a
// Registry.
type Service struct {
	registry *Registry
	validate *validator.Validate
	logger   *slog.Logger
}

// NewValidator returns a validator that reports JSON field names and checks
// batch credentials and entries.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return f.Name
		}
		return name
	})
	v.RegisterStructValidation(validateBulk, domain.BulkRequest{})
	return v
}

// validateBulk requires client credentials, which the batch endpoint needs,
// and rejects empty address entries.
func validateBulk(sl validator.StructLevel) {
	req, ok := sl.Current().Interface().(domain.BulkRequest)
	if !ok {
		return
	}
	if req.ClientID == "" {
		sl.ReportError(req.ClientID, "clientId", "ClientID", "required", "")
	}
	if req.ClientSecret == "" {
		sl.ReportError(req.ClientSecret, "clientSecret", "ClientSecret", "required", "")
	}
	for i, addr := range req.Addresses {
		if addr.IsZero() {
			sl.ReportError(addr, fmt.Sprintf("addresses[%d]", i), fmt.Sprintf("Addresses[%d]", i), "required", "")
		}
	}
}

// NewService creates a Service. A nil validate uses NewValidator.
func NewService(registry *Registry, validate *validator.Validate, logger *slog.Logger) *Service {
	if validate == nil {
		validate = NewValidator()
	}
	return &Service{
		registry: registry,
		validate: validate,
		logger:   logger,
	}
}

// Autocomplete returns suggestions for partial input.
func (s *Service) Autocomplete(ctx context.Context, req domain.SuggestRequest) (domain.SuggestionCollection, error) {
	if err := s.check("autocomplete", req); err != nil {
		return domain.SuggestionCollection{}, err
	}

	resp, err := s.registry.Get(req.Credentials).Suggest(ctx, req.Text, domain.BuildSuggestParams(req))
	if err != nil {
		s.providerError("autocomplete", err)
		return domain.SuggestionCollection{}, err
	}

	out, err := domain.TranslateSuggest(req.Text, resp)
	if err != nil {
		s.translateError("autocomplete", err)
		return domain.SuggestionCollection{}, err
	}
	s.logger.Debug("autocomplete complete", "suggestions", len(out.Features))
	return out, nil
}

// Search forward geocodes a single-line address.
func (s *Service) Search(ctx context.Context, req domain.SearchRequest) (domain.FeatureCollection[domain.TextQuery], error) {
	if err := s.check("search", req); err != nil {
		return domain.FeatureCollection[domain.TextQuery]{}, err
	}

	resp, err := s.registry.Get(req.Credentials).FindAddressCandidates(ctx, req.Text, domain.BuildFindParams(req))
	if err != nil {
		s.providerError("search", err)
		return domain.FeatureCollection[domain.TextQuery]{}, err
	}

	out, err := domain.TranslateSearch(req.Text, resp)
	if err != nil {
		s.translateError("search", err)
		return domain.FeatureCollection[domain.TextQuery]{}, err
	}
	s.logger.Debug("search complete", "features", len(out.Features))
	return out, nil
}

// Bulk geocodes a list of addresses in one provider call. The result has
// one feature per address, in input order.
func (s *Service) Bulk(ctx context.Context, req domain.BulkRequest) (domain.FeatureCollection[domain.AddressQuery], error) {
	if err := s.check("bulk", req); err != nil {
		return domain.FeatureCollection[domain.AddressQuery]{}, err
	}

	addresses := domain.BuildBulkQuery(req)
	resp, err := s.registry.Get(req.Credentials).GeocodeAddresses(ctx, addresses, domain.BatchParams{})
	if err != nil {
		s.providerError("bulk", err)
		return domain.FeatureCollection[domain.AddressQuery]{}, err
	}

	out, err := domain.TranslateBulk(addresses, resp)
	if err != nil {
		s.translateError("bulk", err)
		return domain.FeatureCollection[domain.AddressQuery]{}, err
	}
	s.logger.Debug("bulk complete", "addresses", len(addresses))
	return out, nil
}

// Reverse resolves a point to the nearest address.
func (s *Service) Reverse(ctx context.Context, req domain.ReverseRequest) (domain.FeatureCollection[domain.Point], error) {
	if err := s.check("reverse", req); err != nil {
		return domain.FeatureCollection[domain.Point]{}, err
	}

	point := *req.Point
	resp, err := s.registry.Get(req.Credentials).ReverseGeocode(ctx, point.String(), domain.BuildReverseParams(req))
	if err != nil {
		s.providerError("reverse", err)
		return domain.FeatureCollection[domain.Point]{}, err
	}

	out, err := domain.TranslateReverse(point, resp)
	if err != nil {
		s.translateError("reverse", err)
		return domain.FeatureCollection[domain.Point]{}, err
	}
	return out, nil
}

// CheckReadiness always succeeds; the service holds no connections.
func (s *Service) CheckReadiness(context.Context) error {
	return nil
}

func (s *Service) check(operation string, req any) error {
	err := s.validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%s: %w: %w", operation, domain.ErrInvalidRequest, err)
	}
	msgs := make([]string, len(verrs))
	for i, fe := range verrs {
		msgs[i] = fieldMessage(fe)
	}
	return fmt.Errorf("%s: %w: %s", operation, domain.ErrInvalidRequest, strings.Join(msgs, "; "))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	if _, rest, ok := strings.Cut(field, "."); ok {
		field = rest
	}
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min":
		return fmt.Sprintf("%s must have at least %s entries", field, fe.Param())
	case "gte", "lte":
		return fmt.Sprintf("%s must be %s %s", field, fe.Tag(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %s", field, fe.Tag())
	}
}

func (s *Service) providerError(operation string, err error) {
	s.logger.Warn("provider request failed", "operation", operation, "error", err)
}

func (s *Service) translateError(operation string, err error) {
	s.logger.Error("provider response could not be translated", "operation", operation, "error", err)
}
