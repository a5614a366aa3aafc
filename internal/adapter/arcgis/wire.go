package arcgis

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/domain"
)

// envelope detects the ArcGIS error payload before decoding the success shape.
type envelope struct {
	Error *APIError `json:"error"`
}

// decode unmarshals body into v unless it carries an error envelope.
func decode(body []byte, v any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if env.Error != nil {
		return env.Error
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type batchRecords struct {
	Records []batchRecord `json:"records"`
}

type batchRecord struct {
	Attributes map[string]any `json:"attributes"`
}

// encodeBatch builds the geocodeAddresses "addresses" parameter. OBJECTID is
// the record's index and comes back as ResultID on each location.
func encodeBatch(addresses []domain.AddressInput) (string, error) {
	records := make([]batchRecord, len(addresses))
	for i, addr := range addresses {
		attrs := make(map[string]any, len(addr.Fields)+1)
		if addr.IsRecord() {
			maps.Copy(attrs, addr.Fields)
		} else {
			attrs["SingleLine"] = addr.SingleLine
		}
		attrs["OBJECTID"] = i
		records[i] = batchRecord{Attributes: attrs}
	}
	b, err := json.Marshal(batchRecords{Records: records})
	if err != nil {
		return "", fmt.Errorf("encode addresses: %w", err)
	}
	return string(b), nil
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}
