package domain

import (
	"bytes"
	"encoding/json"
	"errors"
	"maps"
)

// DefaultSearchSize is the candidate cap applied when a search does not set one.
const DefaultSearchSize = 10

// Credentials identify a provider client: OAuth client credentials plus an
// optional endpoint override. The zero value is anonymous access to the
// default endpoint.
type Credentials struct {
	ClientID     string `json:"clientId,omitempty"`
	ClientSecret string `json:"clientSecret,omitempty"`
	URL          string `json:"url,omitempty" validate:"omitempty,url"`
}

// SuggestRequest is the input of an autocomplete call.
type SuggestRequest struct {
	Credentials
	Text       string    `json:"text" validate:"required"`
	Boundary   *Boundary `json:"boundary,omitempty"`
	FocusPoint *Point    `json:"focusPoint,omitempty"`
}

// SearchRequest is the input of a forward geocoding call.
type SearchRequest struct {
	Credentials
	Text       string    `json:"text" validate:"required"`
	Boundary   *Boundary `json:"boundary,omitempty"`
	FocusPoint *Point    `json:"focusPoint,omitempty"`
	ForStorage bool      `json:"forStorage,omitempty"`
	MagicKey   string    `json:"magicKey,omitempty"`
	// Size caps the number of results. Nil means DefaultSearchSize; zero
	// sends no cap at all so the provider default applies.
	Size *int `json:"size,omitempty" validate:"omitempty,gte=0"`
}

// ReverseRequest is the input of a reverse geocoding call.
type ReverseRequest struct {
	Credentials
	Point      *Point `json:"point" validate:"required"`
	ForStorage bool   `json:"forStorage,omitempty"`
}

// BulkRequest is the input of a batch geocoding call. Client credentials are
// mandatory because the batch endpoint only accepts authenticated calls.
type BulkRequest struct {
	Credentials
	Addresses  []AddressInput `json:"addresses" validate:"required,min=1"`
	Boundary   *Boundary      `json:"boundary,omitempty"`
	FocusPoint *Point         `json:"focusPoint,omitempty"`
}

// Size returns a pointer to n, for SearchRequest.Size.
func Size(n int) *int {
	return &n
}

// AddressInput is one address of a batch: either a single-line string or an
// attribute record such as {"address": "...", "city": "..."}.
type AddressInput struct {
	SingleLine string
	Fields     map[string]any
}

// Address returns a single-line address input.
func Address(s string) AddressInput {
	return AddressInput{SingleLine: s}
}

// AddressRecord returns an attribute-record address input.
func AddressRecord(fields map[string]any) AddressInput {
	if fields == nil {
		fields = map[string]any{}
	}
	return AddressInput{Fields: fields}
}

// IsRecord reports whether the input is an attribute record.
func (a AddressInput) IsRecord() bool {
	return a.Fields != nil
}

// IsZero reports whether the input carries nothing to geocode.
func (a AddressInput) IsZero() bool {
	return a.SingleLine == "" && len(a.Fields) == 0
}

// MarshalJSON writes the input back in the shape it was given.
func (a AddressInput) MarshalJSON() ([]byte, error) {
	if a.IsRecord() {
		return json.Marshal(a.Fields)
	}
	return json.Marshal(a.SingleLine)
}

func (a *AddressInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = Address(s)
	case len(data) > 0 && data[0] == '{':
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		*a = AddressRecord(m)
	default:
		return errors.New("address must be a string or an object")
	}
	return nil
}

// TextQuery echoes the text of a suggest or search call.
type TextQuery struct {
	Text string `json:"text"`
}

// AddressQuery echoes the address list actually sent in a batch call.
type AddressQuery struct {
	Addresses []AddressInput `json:"addresses"`
}

// BuildSuggestParams derives the provider parameters of an autocomplete call.
func BuildSuggestParams(req SuggestRequest) SuggestParams {
	var p SuggestParams
	if req.FocusPoint != nil {
		p.Location = req.FocusPoint.String()
	}
	if req.Boundary != nil {
		p.SearchExtent = req.Boundary.SearchExtent()
	}
	return p
}

// BuildFindParams derives the provider parameters of a search call. All
// attributes are always requested so candidates can be fully mapped.
func BuildFindParams(req SearchRequest) FindParams {
	p := FindParams{
		OutFields:  "*",
		ForStorage: req.ForStorage,
		MagicKey:   req.MagicKey,
	}
	if req.Boundary != nil {
		p.SearchExtent = req.Boundary.SearchExtent()
	}
	if req.FocusPoint != nil {
		p.Location = req.FocusPoint.String()
	}

	size := DefaultSearchSize
	if req.Size != nil {
		size = *req.Size
	}
	// A zero size deliberately sends no cap.
	p.MaxLocations = size
	return p
}

// BuildReverseParams derives the provider parameters of a reverse call.
func BuildReverseParams(req ReverseRequest) ReverseParams {
	return ReverseParams{ForStorage: req.ForStorage}
}

// BuildBulkQuery derives the address list of a batch call. With a boundary or
// focus point every entry becomes a record carrying the shared searchExtent
// and location; the entry's own fields take precedence. Order is preserved.
func BuildBulkQuery(req BulkRequest) []AddressInput {
	out := make([]AddressInput, len(req.Addresses))
	if req.Boundary == nil && req.FocusPoint == nil {
		copy(out, req.Addresses)
		return out
	}

	shared := make(map[string]any, 2)
	if req.Boundary != nil {
		shared["searchExtent"] = req.Boundary.SearchExtent()
	}
	if req.FocusPoint != nil {
		shared["location"] = req.FocusPoint.String()
	}

	for i, addr := range req.Addresses {
		fields := make(map[string]any, len(shared)+len(addr.Fields)+1)
		maps.Copy(fields, shared)
		if addr.IsRecord() {
			maps.Copy(fields, addr.Fields)
		} else {
			fields["address"] = addr.SingleLine
		}
		out[i] = AddressRecord(fields)
	}
	return out
}
