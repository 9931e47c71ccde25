// Package capture is a thin client for an interactive address-capture API
// with a two-step Find→Retrieve lookup flow.
package capture

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/parcelworks/addrsplit/internal/resilience"
)

const (
	// DefaultBaseURL is the hosted capture endpoint.
	DefaultBaseURL = "https://api.addressy.com"

	findPath     = "/Capture/Interactive/Find/v1.10/json3.ws"
	retrievePath = "/Capture/Interactive/Retrieve/v1.00/json3.ws"
)

// FindItem is one candidate from the Find step.
type FindItem struct {
	ID   string `json:"Id"`
	Text string `json:"Text"`
	Type string `json:"Type"`
}

// RetrieveItem is one fully-expanded address from the Retrieve step. The
// provider's component keys vary by country, so the raw object is kept and
// read through Str.
type RetrieveItem map[string]any

// Str returns the first non-empty string value among keys, trimmed.
func (r RetrieveItem) Str(keys ...string) string {
	for _, k := range keys {
		if v, ok := r[k]; ok {
			if s, ok := v.(string); ok {
				if s = strings.TrimSpace(s); s != "" {
					return s
				}
			}
		}
	}
	return ""
}

// Client calls the capture API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps requests per second.
func WithRateLimit(rps float64) Option {
	return func(c *Client) { c.limiter = rate.NewLimiter(rate.Limit(rps), int(rps)) }
}

// NewClient creates a capture client. An empty baseURL falls back to the
// hosted endpoint.
func NewClient(baseURL, apiKey string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 8 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "capture: rate limit")
	}

	return resilience.Do(ctx, resilience.DefaultPolicy(), "capture", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet,
			c.baseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return eris.Wrap(err, "capture: build request")
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return eris.Wrap(err, "capture: request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("capture: status %d", resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return resilience.NewTransientError(err, resp.StatusCode)
			}
			return err
		}

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return eris.Wrap(err, "capture: read body")
		}
		if err := json.Unmarshal(raw, out); err != nil {
			return eris.Wrap(err, "capture: invalid json")
		}
		return nil
	})
}

// Find searches free text for address candidates. limit is clamped to
// [1, 10]. Country filtering is deliberately not requested so behavior stays
// consistent with the other pipelines (global search).
func (c *Client) Find(ctx context.Context, text string, limit int, language string) ([]FindItem, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 10 {
		limit = 10
	}

	params := url.Values{
		"Key":   {c.apiKey},
		"Text":  {text},
		"Limit": {strconv.Itoa(limit)},
	}
	if language != "" {
		params.Set("Language", language)
	}

	var payload struct {
		Items []FindItem `json:"Items"`
	}
	if err := c.getJSON(ctx, findPath, params, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}

// Retrieve expands a Find candidate into full address components.
func (c *Client) Retrieve(ctx context.Context, itemID string) ([]RetrieveItem, error) {
	params := url.Values{
		"Key": {c.apiKey},
		"Id":  {itemID},
	}

	var payload struct {
		Items []RetrieveItem `json:"Items"`
	}
	if err := c.getJSON(ctx, retrievePath, params, &payload); err != nil {
		return nil, err
	}
	return payload.Items, nil
}
