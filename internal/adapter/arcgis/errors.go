package arcgis

import (
	"errors"
	"fmt"
	"strings"
)

// ErrCredentialsRequired is returned for operations that need an access token
// when the client has no client ID or secret.
var ErrCredentialsRequired = errors.New("arcgis: client credentials required")

// APIError is the error envelope ArcGIS returns, often with HTTP status 200.
type APIError struct {
	Code    int      `json:"code"`
	Message string   `json:"message"`
	Details []string `json:"details"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("arcgis: error %d: %s", e.Code, e.Message)
	if len(e.Details) > 0 {
		msg += " (" + strings.Join(e.Details, "; ") + ")"
	}
	return msg
}

// StatusError is a non-2xx HTTP response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("arcgis: status %d: %s", e.StatusCode, e.Body)
}
