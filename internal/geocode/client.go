// Package geocode talks to the upstream reverse-geocoding service used to
// attach a human-readable place name to newly reported guards.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrNotFound is returned when upstream has no place name for the position.
var ErrNotFound = errors.New("geocode: not found")

// Result carries the resolved place name for a position.
type Result struct {
	Locality string
	Region   string
}

// DisplayName renders the result as a single label, e.g. "Ovre Pasvik, Finnmark".
func (r Result) DisplayName() string {
	if r.Region == "" {
		return r.Locality
	}
	if r.Locality == "" {
		return r.Region
	}
	return r.Locality + ", " + r.Region
}

// Client defines the contract for reverse-geocoding lookups.
type Client interface {
	Reverse(ctx context.Context, lat, lon float64) (*Result, error)
}

// HTTPClient implements Client over HTTP.
type HTTPClient struct {
	baseURL *url.URL
	apiKey  string
	client  *http.Client
	logger  zerolog.Logger
}

// NewHTTPClient constructs a new HTTP-backed reverse-geocoding client.
func NewHTTPClient(baseURL, apiKey string, timeout time.Duration, logger zerolog.Logger) (*HTTPClient, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse geocoder url: %w", err)
	}
	return &HTTPClient{
		baseURL: parsed,
		apiKey:  apiKey,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				ExpectContinueTimeout: 1 * time.Second,
			},
		},
		logger: logger,
	}, nil
}

// Reverse resolves coordinates to a place name.
func (c *HTTPClient) Reverse(ctx context.Context, lat, lon float64) (*Result, error) {
	rel := &url.URL{Path: "/reverse"}
	q := rel.Query()
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	rel.RawQuery = q.Encode()
	endpoint := c.baseURL.ResolveReference(rel)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var payload apiResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode geocoder response: %w", err)
		}
		result := convertToResult(payload)
		if result.Locality == "" && result.Region == "" {
			return nil, ErrNotFound
		}
		return result, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	default:
		c.logger.Warn().
			Int("status", resp.StatusCode).
			Float64("lat", lat).
			Float64("lon", lon).
			Msg("geocode: unexpected upstream status")
		return nil, fmt.Errorf("geocode: upstream returned %d", resp.StatusCode)
	}
}

type apiResponse struct {
	Locality *string `json:"locality"`
	Region   *string `json:"region"`
}

func convertToResult(payload apiResponse) *Result {
	result := &Result{}
	if payload.Locality != nil {
		result.Locality = strings.TrimSpace(*payload.Locality)
	}
	if payload.Region != nil {
		result.Region = strings.TrimSpace(*payload.Region)
	}
	return result
}
