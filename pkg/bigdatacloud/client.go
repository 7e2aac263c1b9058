package bigdatacloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// BaseURL is the BigDataCloud client-side reverse geocoding endpoint.
	BaseURL = "https://api.bigdatacloud.net/data/reverse-geocode-client"
)

// Config holds client settings. Zero values fall back to defaults.
type Config struct {
	BaseURL  string
	Language string
	Timeout  time.Duration
}

// Client is a minimal HTTP client for the BigDataCloud reverse geocoder.
type Client struct {
	httpClient *http.Client
	baseURL    string
	language   string
}

// NewClient constructs a new client with sane defaults.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = BaseURL
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    cfg.BaseURL,
		language:   cfg.Language,
	}
}

// ReverseGeocode resolves coordinates to administrative names.
func (c *Client) ReverseGeocode(ctx context.Context, latitude, longitude float64) (*ReverseGeocodeResponse, error) {
	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("localityLanguage", c.language)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
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
		Int("status_code", resp.StatusCode).
		Int("bytes", len(body)).
		Msg("[BIGDATACLOUD] Incoming response")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: truncate(body, 256)}
	}

	var result ReverseGeocodeResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &result, nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
