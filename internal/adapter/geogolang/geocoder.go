// Package geogolang exposes the geocoding service as a geo.Geocoder so code
// written against github.com/codingsince1985/geo-golang can use ArcGIS results.
package geogolang

import (
	"context"
	"time"

	geo "github.com/codingsince1985/geo-golang"
	geojson "github.com/paulmach/go.geojson"

	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/domain"
)

// Searcher is the subset of the geocoding service the adapter needs.
type Searcher interface {
	Search(ctx context.Context, req domain.SearchRequest) (domain.FeatureCollection[domain.TextQuery], error)
	Reverse(ctx context.Context, req domain.ReverseRequest) (domain.FeatureCollection[domain.Point], error)
}

// Geocoder implements geo.Geocoder. geo.Geocoder methods take no context, so
// every call is bounded by timeout instead.
type Geocoder struct {
	searcher Searcher
	creds    domain.Credentials
	timeout  time.Duration
}

var _ geo.Geocoder = (*Geocoder)(nil)

// New creates a geo.Geocoder that searches with creds.
func New(searcher Searcher, creds domain.Credentials, timeout time.Duration) *Geocoder {
	return &Geocoder{searcher: searcher, creds: creds, timeout: timeout}
}

// Geocode returns the best candidate's location, or nil when nothing matched.
func (g *Geocoder) Geocode(address string) (*geo.Location, error) {
	ctx, cancel := g.context()
	defer cancel()

	fc, err := g.searcher.Search(ctx, domain.SearchRequest{
		Credentials: g.creds,
		Text:        address,
		Size:        domain.Size(1),
	})
	if err != nil {
		return nil, err
	}
	if len(fc.Features) == 0 || notFound(fc.Features[0]) {
		return nil, nil
	}
	pt := fc.Features[0].Geometry.Point
	return &geo.Location{Lat: pt[1], Lng: pt[0]}, nil
}

// ReverseGeocode returns the address nearest to lat/lng.
func (g *Geocoder) ReverseGeocode(lat, lng float64) (*geo.Address, error) {
	ctx, cancel := g.context()
	defer cancel()

	fc, err := g.searcher.Reverse(ctx, domain.ReverseRequest{
		Credentials: g.creds,
		Point:       &domain.Point{Lat: lat, Lon: lng},
	})
	if err != nil {
		return nil, err
	}
	if len(fc.Features) == 0 {
		return nil, nil
	}

	f := fc.Features[0]
	return &geo.Address{
		FormattedAddress: f.PropertyMustString("label"),
		Street:           f.PropertyMustString("name"),
		Suburb:           f.PropertyMustString("neighbourhood"),
		City:             f.PropertyMustString("locality"),
		County:           f.PropertyMustString("county"),
		State:            f.PropertyMustString("region"),
		CountryCode:      f.PropertyMustString("country_a"),
	}, nil
}

func (g *Geocoder) context() (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), g.timeout)
}

func notFound(f *geojson.Feature) bool {
	return f.Geometry == nil || f.PropertyMustString("label") == domain.NotFoundLabel
}
