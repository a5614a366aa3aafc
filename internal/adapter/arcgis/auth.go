package arcgis

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus"
)

// DefaultAuthURL is the ArcGIS Online OAuth2 token endpoint.
const DefaultAuthURL = "https://www.arcgis.com/sharing/oauth2/token"

// refreshMargin is how long before expiry a cached token is replaced.
const refreshMargin = time.Minute

// tokenSource acquires app tokens with the OAuth2 client-credentials grant
// and reuses them until shortly before they expire.
type tokenSource struct {
	clientID     string
	clientSecret string
	authURL      string
	httpClient   *http.Client
	clock        clockwork.Clock
	refreshes    prometheus.Counter
	logger       *slog.Logger

	mu     sync.Mutex
	token  string
	expiry time.Time
}

// Token returns a valid access token, fetching a new one when none is cached
// or the cached one is about to expire. Concurrent callers share one fetch.
func (s *tokenSource) Token(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.token != "" && s.clock.Now().Before(s.expiry.Add(-refreshMargin)) {
		return s.token, nil
	}

	tok, err := s.fetch(ctx)
	if err != nil {
		return "", err
	}
	s.token = tok.AccessToken
	s.expiry = s.clock.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	if s.refreshes != nil {
		s.refreshes.Inc()
	}
	s.logger.Debug("arcgis token acquired", "expires_at", s.expiry)
	return s.token, nil
}

func (s *tokenSource) fetch(ctx context.Context) (tokenResponse, error) {
	form := url.Values{
		"client_id":     {s.clientID},
		"client_secret": {s.clientSecret},
		"grant_type":    {"client_credentials"},
		"f":             {"json"},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.authURL, strings.NewReader(form.Encode()))
	if err != nil {
		return tokenResponse{}, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("token request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return tokenResponse{}, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return tokenResponse{}, fmt.Errorf("token request: %w", &StatusError{StatusCode: resp.StatusCode, Body: string(body)})
	}

	var tok tokenResponse
	if err := decode(body, &tok); err != nil {
		return tokenResponse{}, fmt.Errorf("token request: %w", err)
	}
	if tok.AccessToken == "" {
		return tokenResponse{}, errors.New("token request: response has no access_token")
	}
	return tok, nil
}
