package domain

import (
	"cmp"
	"fmt"
	"regexp"
	"slices"
	"strconv"

	geojson "github.com/paulmach/go.geojson"
)

// NotFoundLabel labels the sentinel feature of a candidate without a location.
const NotFoundLabel = "Address not found"

// intPrefixRe matches the leading integer of a numeric string, e.g. "80" or
// " 97.5" -> "97".
var intPrefixRe = regexp.MustCompile(`^\s*([+-]?\d+)`)

// FeatureCollection is the canonical result of search, bulk and reverse: the
// features plus an echo of the normalized input.
type FeatureCollection[Q any] struct {
	Features []*geojson.Feature `json:"features"`
	Query    Q                  `json:"query"`
}

// SuggestionCollection is the result of autocomplete. Suggestions carry no
// coordinates, so they are passed through as-is.
type SuggestionCollection struct {
	Features []Suggestion `json:"features"`
	Query    TextQuery    `json:"query"`
}

// TranslateSuggest wraps the provider's suggestions.
func TranslateSuggest(text string, resp SuggestResponse) (SuggestionCollection, error) {
	if resp.Suggestions == nil {
		return SuggestionCollection{}, fmt.Errorf("%w: suggest response has no suggestions", ErrMalformedResponse)
	}
	return SuggestionCollection{
		Features: resp.Suggestions,
		Query:    TextQuery{Text: text},
	}, nil
}

// TranslateSearch maps every candidate of a search.
func TranslateSearch(text string, resp FindResponse) (FeatureCollection[TextQuery], error) {
	if resp.Candidates == nil {
		return FeatureCollection[TextQuery]{}, fmt.Errorf("%w: search response has no candidates", ErrMalformedResponse)
	}
	features, err := candidatesToFeatures(resp.Candidates)
	if err != nil {
		return FeatureCollection[TextQuery]{}, err
	}
	return FeatureCollection[TextQuery]{
		Features: features,
		Query:    TextQuery{Text: text},
	}, nil
}

// TranslateBulk maps a batch response. The result holds exactly one feature
// per submitted address, in submission order; unmatched addresses become
// sentinel features.
func TranslateBulk(addresses []AddressInput, resp BatchResponse) (FeatureCollection[AddressQuery], error) {
	if resp.Locations == nil {
		return FeatureCollection[AddressQuery]{}, fmt.Errorf("%w: bulk response has no locations", ErrMalformedResponse)
	}
	if len(resp.Locations) != len(addresses) {
		return FeatureCollection[AddressQuery]{}, fmt.Errorf("%w: bulk response has %d locations for %d addresses",
			ErrMalformedResponse, len(resp.Locations), len(addresses))
	}

	features, err := candidatesToFeatures(orderByResultID(resp.Locations))
	if err != nil {
		return FeatureCollection[AddressQuery]{}, err
	}
	return FeatureCollection[AddressQuery]{
		Features: features,
		Query:    AddressQuery{Addresses: addresses},
	}, nil
}

// TranslateReverse maps the single reverse geocode result.
func TranslateReverse(point Point, resp ReverseResponse) (FeatureCollection[Point], error) {
	if resp.Location == nil {
		return FeatureCollection[Point]{}, fmt.Errorf("%w: reverse response has no location", ErrMalformedResponse)
	}
	if resp.Address == nil {
		return FeatureCollection[Point]{}, fmt.Errorf("%w: reverse response has no address", ErrMalformedResponse)
	}

	addr := resp.Address
	f := geojson.NewPointFeature(resp.Location.Coordinates())
	f.SetProperty("country_a", addr.CountryCode)
	f.SetProperty("county", addr.Subregion)
	f.SetProperty("label", addr.LongLabel)
	f.SetProperty("locality", addr.City)
	f.SetProperty("name", addr.ShortLabel)
	f.SetProperty("neighbourhood", addr.Neighborhood)
	f.SetProperty("region", addr.Region)

	return FeatureCollection[Point]{
		Features: []*geojson.Feature{f},
		Query:    point,
	}, nil
}

// CandidateToFeature maps one search or batch candidate to a point feature.
// A candidate without a usable location yields the "not found" sentinel.
func CandidateToFeature(c Candidate) (*geojson.Feature, error) {
	if c.Location == nil || !c.Location.Valid() {
		f := geojson.NewPointFeature([]float64{0, 0})
		setCandidateProperties(f, 0, nil)
		f.SetProperty("label", NotFoundLabel)
		setResultID(f, c.Attributes)
		return f, nil
	}

	confidence, err := scoreToConfidence(c.Attributes["Score"])
	if err != nil {
		return nil, err
	}

	f := geojson.NewPointFeature(c.Location.Coordinates())
	setCandidateProperties(f, confidence, c.Attributes)
	setResultID(f, c.Attributes)
	return f, nil
}

func candidatesToFeatures(candidates []Candidate) ([]*geojson.Feature, error) {
	features := make([]*geojson.Feature, 0, len(candidates))
	for i, c := range candidates {
		f, err := CandidateToFeature(c)
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i, err)
		}
		features = append(features, f)
	}
	return features, nil
}

func setCandidateProperties(f *geojson.Feature, confidence float64, attrs map[string]any) {
	country := stringAttr(attrs, "Country")
	f.SetProperty("confidence", confidence)
	f.SetProperty("country", country)
	f.SetProperty("country_a", country)
	f.SetProperty("county", stringAttr(attrs, "Subregion"))
	f.SetProperty("label", stringAttr(attrs, "LongLabel"))
	f.SetProperty("locality", stringAttr(attrs, "City"))
	f.SetProperty("name", stringAttr(attrs, "ShortLabel"))
	f.SetProperty("neighbourhood", stringAttr(attrs, "Nbrhd"))
	f.SetProperty("region", stringAttr(attrs, "Region"))
}

// setResultID copies the batch correlation ID, which only batch results carry.
func setResultID(f *geojson.Feature, attrs map[string]any) {
	if id, ok := attrs["ResultID"]; ok && id != nil {
		f.SetProperty("resultId", id)
	}
}

func stringAttr(attrs map[string]any, key string) string {
	switch v := attrs[key].(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// scoreToConfidence converts the 0-100 provider score to 0-1. The provider
// sometimes sends the score as a string; only its integer prefix counts.
func scoreToConfidence(score any) (float64, error) {
	switch v := score.(type) {
	case float64:
		return v / 100, nil
	case int:
		return float64(v) / 100, nil
	case string:
		m := intPrefixRe.FindStringSubmatch(v)
		if m == nil {
			break
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			break
		}
		return float64(n) / 100, nil
	}
	return 0, fmt.Errorf("%w: candidate Score %v is not a number", ErrMalformedResponse, score)
}

// orderByResultID restores submission order when every location carries a
// numeric ResultID. Otherwise the provider's order is kept as-is.
func orderByResultID(locations []Candidate) []Candidate {
	type indexed struct {
		id float64
		c  Candidate
	}
	items := make([]indexed, len(locations))
	for i, c := range locations {
		id, ok := c.Attributes["ResultID"].(float64)
		if !ok {
			return locations
		}
		items[i] = indexed{id: id, c: c}
	}

	slices.SortStableFunc(items, func(a, b indexed) int {
		return cmp.Compare(a.id, b.id)
	})

	ordered := make([]Candidate, len(items))
	for i, it := range items {
		ordered[i] = it.c
	}
	return ordered
}
