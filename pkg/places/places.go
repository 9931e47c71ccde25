// Package places is a thin client for a managed place-search (geocoding)
// HTTP API. The adapter layer maps its results onto the canonical address
// schema; this package only speaks the provider's shape.
package places

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/parcelworks/addrsplit/internal/resilience"
)

// Place is one candidate returned by the search endpoint.
type Place struct {
	Label         string `json:"Label"`
	AddressNumber string `json:"AddressNumber"`
	Street        string `json:"Street"`
	Municipality  string `json:"Municipality"`
	Region        string `json:"Region"`
	PostalCode    string `json:"PostalCode"`
	Country       string `json:"Country"`
	// Point is [longitude, latitude], the provider's coordinate order.
	Point []float64 `json:"Point"`
}

// searchResponse is the provider's search payload.
type searchResponse struct {
	Results []struct {
		Place Place `json:"Place"`
	} `json:"Results"`
}

// Client calls the place-search API.
type Client struct {
	baseURL    string
	indexName  string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
	cache      *gocache.Cache
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

// WithCacheTTL enables an in-process result cache. The cache is a transparent
// shim: identical queries return the stored provider result unchanged.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) { c.cache = gocache.New(ttl, 2*ttl) }
}

// NewClient creates a place-search client for the given endpoint and place
// index.
func NewClient(baseURL, indexName, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		indexName:  indexName,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(10, 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SearchText resolves free text to at most one place candidate. country, when
// given as an ISO-3 code, is passed as a provider-side filter; ISO-2 hints
// are ignored here because the provider only accepts ISO-3. A nil result
// means the provider found nothing — that is a miss, not an error.
func (c *Client) SearchText(ctx context.Context, text, country string) (*Place, error) {
	cacheKey := country + "\x00" + text
	if c.cache != nil {
		if hit, ok := c.cache.Get(cacheKey); ok {
			if p, ok := hit.(*Place); ok {
				return p, nil
			}
		}
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "places: rate limit")
	}

	payload := map[string]any{
		"IndexName":  c.indexName,
		"Text":       text,
		"MaxResults": 1,
	}
	if cc := strings.ToUpper(strings.TrimSpace(country)); len(cc) == 3 {
		payload["FilterCountries"] = []string{cc}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "places: marshal request")
	}

	var sr searchResponse
	err = resilience.Do(ctx, resilience.DefaultPolicy(), "places", func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/places/search-text", bytes.NewReader(body))
		if err != nil {
			return eris.Wrap(err, "places: build request")
		}
		req.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return eris.Wrap(err, "places: request")
		}
		defer resp.Body.Close() //nolint:errcheck

		if resp.StatusCode != http.StatusOK {
			err := eris.Errorf("places: status %d", resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return resilience.NewTransientError(err, resp.StatusCode)
			}
			return err
		}

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return eris.Wrap(err, "places: read body")
		}

		sr = searchResponse{}
		return eris.Wrap(json.Unmarshal(raw, &sr), "places: parse response")
	})
	if err != nil {
		return nil, err
	}

	var result *Place
	if len(sr.Results) > 0 {
		p := sr.Results[0].Place
		result = &p
	}

	if c.cache != nil {
		c.cache.SetDefault(cacheKey, result)
	}
	return result, nil
}
