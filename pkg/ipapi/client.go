package ipapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// BaseURL is the ipapi.co API base URL.
	BaseURL = "https://ipapi.co"
)

// ErrLookupFailed is returned when the API answers with its error flag set.
var ErrLookupFailed = errors.New("ipapi: lookup failed")

// Config holds client settings. Zero values fall back to defaults.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client is a minimal HTTP client for IP-based geolocation.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

// NewClient constructs a new client with sane defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

// Lookup geolocates ip. An empty ip geolocates the caller's own address.
func (c *Client) Lookup(ctx context.Context, ip string) (*LookupResponse, error) {
	endpoint := c.baseURL + "/json/"
	if ip != "" {
		endpoint = c.baseURL + "/" + url.PathEscape(ip) + "/json/"
	}
	if c.apiKey != "" {
		endpoint += "?key=" + url.QueryEscape(c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	log.Debug().
		Str("ip", ip).
		Int("status_code", resp.StatusCode).
		Msg("[IPAPI] Incoming response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("ipapi: unexpected status %d", resp.StatusCode)
	}

	var result LookupResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if result.Error {
		return nil, fmt.Errorf("%w: %s", ErrLookupFailed, result.Reason)
	}
	return &result, nil
}
