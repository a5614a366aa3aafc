package domain

import "context"

// Provider is the contract the geocoding service needs from a provider client.
// Implementations perform the network calls, including any token acquisition,
// and return an error for transport failures and non-success responses.
type Provider interface {
	// Suggest returns text/magicKey pairs for partial input.
	Suggest(ctx context.Context, text string, params SuggestParams) (SuggestResponse, error)

	// FindAddressCandidates forward geocodes a single-line address.
	FindAddressCandidates(ctx context.Context, text string, params FindParams) (FindResponse, error)

	// GeocodeAddresses batch geocodes addresses; requires authentication.
	GeocodeAddresses(ctx context.Context, addresses []AddressInput, params BatchParams) (BatchResponse, error)

	// ReverseGeocode resolves a "lon,lat" point to an address.
	ReverseGeocode(ctx context.Context, point string, params ReverseParams) (ReverseResponse, error)
}

// Suggestion is one suggest result.
type Suggestion struct {
	Text         string `json:"text"`
	MagicKey     string `json:"magicKey"`
	IsCollection bool   `json:"isCollection"`
}

// SuggestResponse is the decoded suggest payload. A nil Suggestions slice
// means the field was absent.
type SuggestResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

// Candidate is one potential match. Location is nil when the provider could
// not place the address. Attributes is the provider's flat attribute bag
// (Score, Country, Subregion, LongLabel, City, ShortLabel, Nbrhd, Region and,
// for batch results, ResultID).
type Candidate struct {
	Address    string         `json:"address,omitempty"`
	Location   *ProviderPoint `json:"location,omitempty"`
	Attributes map[string]any `json:"attributes"`
}

// FindResponse is the decoded findAddressCandidates payload.
type FindResponse struct {
	Candidates []Candidate `json:"candidates"`
}

// BatchResponse is the decoded geocodeAddresses payload.
type BatchResponse struct {
	Locations []Candidate `json:"locations"`
}

// ReverseAddress is the attribute bag of a reverse geocode. The provider
// spells the locality key in lower case, unlike every other key.
type ReverseAddress struct {
	CountryCode  string `json:"CountryCode"`
	Subregion    string `json:"Subregion"`
	LongLabel    string `json:"LongLabel"`
	City         string `json:"city"`
	ShortLabel   string `json:"ShortLabel"`
	Neighborhood string `json:"Neighborhood"`
	Region       string `json:"Region"`
}

// ReverseResponse is the decoded reverseGeocode payload. The provider always
// returns a single result.
type ReverseResponse struct {
	Address  *ReverseAddress `json:"address"`
	Location *ProviderPoint  `json:"location"`
}
