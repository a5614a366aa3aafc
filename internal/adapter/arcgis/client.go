package arcgis

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/domain"
	"github.com/couchcryptid/geocoder-arcgis-geojson/internal/observability"
)

// DefaultURL is the ArcGIS World Geocoding Service.
const DefaultURL = "https://geocode.arcgis.com/arcgis/rest/services/World/GeocodeServer"

// Options configures a Client. Zero values select the defaults.
type Options struct {
	Credentials domain.Credentials
	// AuthURL overrides the OAuth2 token endpoint.
	AuthURL string
	// Timeout bounds every HTTP round trip. Ignored when HTTPClient is set.
	Timeout time.Duration
	// RateLimit caps outgoing requests per second; zero or less disables it.
	RateLimit  float64
	HTTPClient *http.Client
	Clock      clockwork.Clock
	Metrics    *observability.Metrics
	Logger     *slog.Logger
}

// Client implements domain.Provider against the ArcGIS geocoding REST API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	tokens     *tokenSource
	logger     *slog.Logger
}

// NewClient creates an ArcGIS client for one credentials tuple.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	baseURL := opts.Credentials.URL
	if baseURL == "" {
		baseURL = DefaultURL
	}

	limit := rate.Inf
	if opts.RateLimit > 0 {
		limit = rate.Limit(opts.RateLimit)
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, 1),
		logger:     logger,
	}

	if opts.Credentials.ClientID != "" && opts.Credentials.ClientSecret != "" {
		authURL := opts.AuthURL
		if authURL == "" {
			authURL = DefaultAuthURL
		}
		clk := opts.Clock
		if clk == nil {
			clk = clockwork.NewRealClock()
		}
		c.tokens = &tokenSource{
			clientID:     opts.Credentials.ClientID,
			clientSecret: opts.Credentials.ClientSecret,
			authURL:      authURL,
			httpClient:   httpClient,
			clock:        clk,
			logger:       logger,
		}
		if opts.Metrics != nil {
			c.tokens.refreshes = opts.Metrics.TokenRefreshes
		}
	}
	return c
}

// Suggest calls the suggest endpoint.
func (c *Client) Suggest(ctx context.Context, text string, params domain.SuggestParams) (domain.SuggestResponse, error) {
	v := url.Values{"text": {text}}
	params.Encode(v)

	var resp domain.SuggestResponse
	if err := c.get(ctx, "/suggest", v, false, &resp); err != nil {
		return domain.SuggestResponse{}, fmt.Errorf("suggest: %w", err)
	}
	return resp, nil
}

// FindAddressCandidates calls the findAddressCandidates endpoint.
func (c *Client) FindAddressCandidates(ctx context.Context, text string, params domain.FindParams) (domain.FindResponse, error) {
	v := url.Values{"SingleLine": {text}}
	params.Encode(v)

	var resp domain.FindResponse
	if err := c.get(ctx, "/findAddressCandidates", v, params.ForStorage, &resp); err != nil {
		return domain.FindResponse{}, fmt.Errorf("find address candidates: %w", err)
	}
	return resp, nil
}

// ReverseGeocode calls the reverseGeocode endpoint with a "lon,lat" point.
func (c *Client) ReverseGeocode(ctx context.Context, point string, params domain.ReverseParams) (domain.ReverseResponse, error) {
	v := url.Values{"location": {point}}
	params.Encode(v)

	var resp domain.ReverseResponse
	if err := c.get(ctx, "/reverseGeocode", v, params.ForStorage, &resp); err != nil {
		return domain.ReverseResponse{}, fmt.Errorf("reverse geocode: %w", err)
	}
	return resp, nil
}

// GeocodeAddresses calls the geocodeAddresses batch endpoint. It always
// requires an access token.
func (c *Client) GeocodeAddresses(ctx context.Context, addresses []domain.AddressInput, params domain.BatchParams) (domain.BatchResponse, error) {
	records, err := encodeBatch(addresses)
	if err != nil {
		return domain.BatchResponse{}, fmt.Errorf("geocode addresses: %w", err)
	}
	v := url.Values{"addresses": {records}}
	params.Encode(v)

	var resp domain.BatchResponse
	if err := c.post(ctx, "/geocodeAddresses", v, &resp); err != nil {
		return domain.BatchResponse{}, fmt.Errorf("geocode addresses: %w", err)
	}
	return resp, nil
}

// get sends the access token in the Authorization header only, keeping it
// out of URLs that end up in proxy and access logs.
func (c *Client) get(ctx context.Context, path string, v url.Values, needToken bool, out any) error {
	token, err := c.token(ctx, needToken)
	if err != nil {
		return err
	}
	v.Set("f", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+v.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return c.do(req, token, out)
}

// post always requires a token. The batch endpoint reads it from the form
// body, so it is sent there as well as in the header.
func (c *Client) post(ctx context.Context, path string, v url.Values, out any) error {
	token, err := c.token(ctx, true)
	if err != nil {
		return err
	}
	v.Set("token", token)
	v.Set("f", "json")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(v.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req, token, out)
}

// token returns the access token, or "" for anonymous calls. Without
// credentials it fails only when the operation requires a token.
func (c *Client) token(ctx context.Context, required bool) (string, error) {
	if c.tokens == nil {
		if required {
			return "", ErrCredentialsRequired
		}
		return "", nil
	}
	return c.tokens.Token(ctx)
}

func (c *Client) do(req *http.Request, token string, out any) error {
	if err := c.limiter.Wait(req.Context()); err != nil {
		return fmt.Errorf("rate limit: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("arcgis request",
		"method", req.Method,
		"path", req.URL.Path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return decode(body, out)
}
