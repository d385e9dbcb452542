// Package playhq is a client for the PlayHQ-style public sports-data API.
//
// The API authenticates with two static headers, paginates with an opaque
// cursor plus a hasMore flag, and rate-limits aggressively. The server
// asserts visibility itself: whatever the public endpoints return is public
// by construction, so the client never filters entities.
package playhq

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/caroline-springs-cc/pitchbot/internal/resilience"
)

// UpstreamUnavailableError reports that the upstream API stayed unreachable
// after retries were exhausted. Callers degrade to indexed data rather than
// serving partial upstream responses.
type UpstreamUnavailableError struct {
	Resource string
	Err      error
}

func (e *UpstreamUnavailableError) Error() string {
	return fmt.Sprintf("upstream unavailable: %s: %v", e.Resource, e.Err)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return e.Err
}

// Client performs authenticated, rate-limited, retrying requests against
// the public API. It holds no cross-call state besides credentials and
// retry configuration.
type Client struct {
	httpc   *http.Client
	baseURL string
	apiKey  string
	tenant  string
	limiter *rate.Limiter
	retry   resilience.RetryConfig
}

// Option configures the client.
type Option func(*Client)

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpc = hc }
}

// WithRetryConfig overrides the default retry behavior.
func WithRetryConfig(cfg resilience.RetryConfig) Option {
	return func(c *Client) { c.retry = cfg }
}

// WithRequestsPerMinute overrides the default request budget.
func WithRequestsPerMinute(rpm int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Limit(float64(rpm)/60.0), 1)
	}
}

// NewClient creates a client. apiKey and tenant are sent on every request
// as the x-api-key and x-phq-tenant headers.
func NewClient(baseURL, apiKey, tenant string, opts ...Option) *Client {
	c := &Client{
		httpc: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		baseURL: baseURL,
		apiKey:  apiKey,
		tenant:  tenant,
		limiter: rate.NewLimiter(rate.Limit(1), 1),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// page is the common response envelope for list endpoints.
type page struct {
	Data     []json.RawMessage `json:"data"`
	Metadata struct {
		HasMore    bool   `json:"hasMore"`
		NextCursor string `json:"nextCursor"`
	} `json:"metadata"`
}

// objectEnvelope wraps single-object responses.
type objectEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// get performs one rate-limited, retried GET and decodes the body into out.
func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "playhq: rate limit wait")
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	cfg := c.retry
	if cfg.OnRetry == nil {
		cfg.OnRetry = resilience.RetryLogger("playhq", path)
	}

	body, err := resilience.DoVal(ctx, cfg, func(ctx context.Context) ([]byte, error) {
		return c.doOnce(ctx, u, path)
	})
	if err != nil {
		if resilience.IsTransient(err) {
			return &UpstreamUnavailableError{Resource: path, Err: err}
		}
		return err
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrapf(err, "playhq: decode %s", path)
	}
	return nil
}

func (c *Client) doOnce(ctx context.Context, fullURL, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, eris.Wrapf(err, "playhq: create request %s", path)
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("x-phq-tenant", c.tenant)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, eris.Wrapf(err, "playhq: request %s", path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrapf(err, "playhq: read response %s", path)
	}

	if resp.StatusCode == http.StatusOK {
		return body, nil
	}

	err = eris.Errorf("playhq: %s returned %d: %s", path, resp.StatusCode, truncate(body, 200))
	if resilience.IsTransientHTTPStatus(resp.StatusCode) {
		te := resilience.NewTransientError(err, resp.StatusCode)
		if d := parseRetryAfter(resp.Header.Get("Retry-After")); d > 0 {
			te = te.WithRetryAfter(d)
		}
		return nil, te
	}
	return nil, err
}

// collect walks the cursor until hasMore is false, concatenating records in
// response order. Either all pages succeed or an error is returned; no
// partial slices.
func (c *Client) collect(ctx context.Context, path string, params url.Values) ([]json.RawMessage, error) {
	var records []json.RawMessage
	cursor := ""
	for {
		p := cloneValues(params)
		if cursor != "" {
			p.Set("cursor", cursor)
		}
		var pg page
		if err := c.get(ctx, path, p, &pg); err != nil {
			return nil, err
		}
		records = append(records, pg.Data...)
		if !pg.Metadata.HasMore {
			return records, nil
		}
		cursor = pg.Metadata.NextCursor
	}
}

func cloneValues(v url.Values) url.Values {
	out := url.Values{}
	for k, vals := range v {
		for _, val := range vals {
			out.Add(k, val)
		}
	}
	return out
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if secs, err := strconv.Atoi(header); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
