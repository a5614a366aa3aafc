package domain

import (
	"net/url"
	"strconv"
)

// SuggestParams are the optional provider parameters of a suggest call.
type SuggestParams struct {
	// Location biases suggestions toward a "lon,lat" point.
	Location string
	// SearchExtent restricts suggestions to a "minLon,maxLat,maxLon,minLat" extent.
	SearchExtent string
}

// Encode writes the parameters that are set into v.
func (p SuggestParams) Encode(v url.Values) {
	setString(v, "location", p.Location)
	setString(v, "searchExtent", p.SearchExtent)
}

// FindParams are the provider parameters of a findAddressCandidates call.
type FindParams struct {
	// OutFields selects the attributes returned per candidate; "*" is all.
	OutFields string
	// SearchExtent restricts candidates to an extent.
	SearchExtent string
	// Location biases candidates toward a point.
	Location string
	// ForStorage marks the lookup as storage-intended, which the provider
	// bills and licenses differently.
	ForStorage bool
	// MagicKey pins the search to an entity returned by suggest.
	MagicKey string
	// MaxLocations caps the number of candidates. Zero leaves the
	// provider default in place.
	MaxLocations int
}

// Encode writes the parameters that are set into v.
func (p FindParams) Encode(v url.Values) {
	setString(v, "outFields", p.OutFields)
	setString(v, "searchExtent", p.SearchExtent)
	setString(v, "location", p.Location)
	setBool(v, "forStorage", p.ForStorage)
	setString(v, "magicKey", p.MagicKey)
	if p.MaxLocations != 0 {
		v.Set("maxLocations", strconv.Itoa(p.MaxLocations))
	}
}

// ReverseParams are the optional provider parameters of a reverseGeocode call.
type ReverseParams struct {
	// ForStorage marks the lookup as storage-intended. Only sent when true.
	ForStorage bool
}

// Encode writes the parameters that are set into v.
func (p ReverseParams) Encode(v url.Values) {
	setBool(v, "forStorage", p.ForStorage)
}

// BatchParams are the call-level parameters of a geocodeAddresses call.
// Extent and location travel on each address record instead.
type BatchParams struct{}

// Encode is a no-op; present for symmetry with the other operations.
func (BatchParams) Encode(url.Values) {}

func setString(v url.Values, key, value string) {
	if value != "" {
		v.Set(key, value)
	}
}

func setBool(v url.Values, key string, value bool) {
	if value {
		v.Set(key, "true")
	}
}
