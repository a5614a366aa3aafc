package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Point is a WGS-84 latitude/longitude pair.
type Point struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// String serializes the point in the provider's "lon,lat" order.
func (p Point) String() string {
	return formatCoord(p.Lon) + "," + formatCoord(p.Lat)
}

// Coordinates returns the GeoJSON position [lon, lat].
func (p Point) Coordinates() []float64 {
	return []float64{p.Lon, p.Lat}
}

// ParsePoint parses a "lon,lat" string as produced by Point.String.
func ParsePoint(s string) (Point, error) {
	lon, lat, ok := strings.Cut(s, ",")
	if !ok {
		return Point{}, fmt.Errorf("parse point %q: expected lon,lat", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(lon), 64)
	if err != nil {
		return Point{}, fmt.Errorf("parse point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return Point{}, fmt.Errorf("parse point %q: %w", s, err)
	}
	return Point{Lat: y, Lon: x}, nil
}

// ProviderPoint is the provider-native point, X being longitude and Y latitude.
type ProviderPoint struct {
	X Coordinate `json:"x"`
	Y Coordinate `json:"y"`
}

// Coordinates returns the GeoJSON position [lon, lat].
func (p ProviderPoint) Coordinates() []float64 {
	return []float64{float64(p.X), float64(p.Y)}
}

// Valid reports whether both ordinates are real numbers. Unmatched batch
// records come back with "NaN" ordinates.
func (p ProviderPoint) Valid() bool {
	return !math.IsNaN(float64(p.X)) && !math.IsNaN(float64(p.Y))
}

// Coordinate is a single ordinate that decodes from a JSON number or a
// numeric string.
type Coordinate float64

func (c *Coordinate) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = Coordinate(math.NaN())
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("coordinate %q: %w", s, err)
		}
		*c = Coordinate(v)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*c = Coordinate(v)
	return nil
}

func (c Coordinate) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(c)) {
		return []byte(`"NaN"`), nil
	}
	return []byte(formatCoord(float64(c))), nil
}

// Rect holds the four scalar bounds of a bounding extent.
type Rect struct {
	MinLat float64 `json:"minLat" validate:"gte=-90,lte=90"`
	MinLon float64 `json:"minLon" validate:"gte=-180,lte=180"`
	MaxLat float64 `json:"maxLat" validate:"gte=-90,lte=90"`
	MaxLon float64 `json:"maxLon" validate:"gte=-180,lte=180"`
}

// Boundary is a hard rectangular constraint on result locations.
type Boundary struct {
	Rect Rect `json:"rect"`
}

// SearchExtent serializes the boundary in the order the provider expects:
// minLon,maxLat,maxLon,minLat.
func (b Boundary) SearchExtent() string {
	return strings.Join([]string{
		formatCoord(b.Rect.MinLon),
		formatCoord(b.Rect.MaxLat),
		formatCoord(b.Rect.MaxLon),
		formatCoord(b.Rect.MinLat),
	}, ",")
}

// formatCoord renders a float the shortest way that round-trips, which is
// also how the values were given to us.
func formatCoord(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
