package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Client manages communication with the Graph API.
type Client struct {
	client      *http.Client
	BaseURL     *url.URL
	accessToken string

	limiter        *rate.Limiter
	mu             sync.Mutex
	forceWaitUntil time.Time
}

// RateLimitConfig controls how requests are throttled before reaching the
// Graph API.
type RateLimitConfig struct {
	// RequestsPerMinute caps steady-state throughput. Defaults to 120 if zero.
	RequestsPerMinute float64
	// Burst allows short spikes above the steady-state rate. Defaults to 10 if zero.
	Burst int
}

const (
	DefaultRequestsPerMinute = 120
	DefaultRateLimitBurst    = 10
	SecondsPerMinute         = 60.0
	ParseFloatBitSize        = 64

	// appUsagePauseThreshold is the X-App-Usage percentage at which the
	// client starts deferring requests to avoid being throttled upstream.
	appUsagePauseThreshold = 95.0
	// appUsagePause is how long requests are deferred once the threshold
	// is crossed. App usage windows reset on the order of minutes.
	appUsagePause = time.Minute
)

// NewClient returns a new Graph API client.
// If a nil httpClient is provided, http.DefaultClient will be used.
func NewClient(httpClient *http.Client, accessToken string, baseURL string, rateCfg *RateLimitConfig) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	parsedURL, err := url.Parse(baseURL)
	if err != nil {
		return nil, &ClientError{OriginalErr: err}
	}
	if !strings.HasSuffix(parsedURL.Path, "/") {
		parsedURL.Path += "/"
	}

	if rateCfg == nil {
		rateCfg = &RateLimitConfig{}
	}

	limiter := buildLimiter(*rateCfg)

	c := &Client{
		client:      httpClient,
		BaseURL:     parsedURL,
		accessToken: accessToken,
		limiter:     limiter,
	}

	return c, nil
}

// NewRequest creates a GET request for a path relative to the client's
// base URL. The access token is attached as a query parameter, which is
// how the Graph API authenticates requests.
func (c *Client) NewRequest(ctx context.Context, path string, query url.Values) (*http.Request, error) {
	u, err := c.BaseURL.Parse(strings.TrimPrefix(path, "/"))
	if err != nil {
		return nil, &ClientError{OriginalErr: err}
	}

	q := url.Values{}
	for k, vs := range query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	q.Set("access_token", c.accessToken)
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, &ClientError{OriginalErr: err}
	}

	return req, nil
}

// NewPageRequest creates a GET request for a complete paging URL returned
// by the API. The URL already embeds the access token and cursor, so it is
// followed verbatim.
func (c *Client) NewPageRequest(ctx context.Context, pageURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, &ClientError{OriginalErr: err}
	}
	return req, nil
}

// Do sends an API request and JSON-decodes the response body into v.
// Non-2xx responses are returned as an APIStatusError carrying the body so
// the caller can extract the API's error envelope.
func (c *Client) Do(req *http.Request, v any) error {
	body, err := c.DoRaw(req)
	if err != nil {
		return err
	}

	if v != nil {
		if err := json.Unmarshal(body, v); err != nil {
			return &ClientError{OriginalErr: err}
		}
	}

	return nil
}

// DoRaw sends an API request and returns the raw response body.
func (c *Client) DoRaw(req *http.Request) ([]byte, error) {
	if err := c.waitForRateLimit(req.Context()); err != nil {
		return nil, &ClientError{OriginalErr: err}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &ClientError{OriginalErr: err}
	}
	defer resp.Body.Close()

	c.applyRateHeaders(resp)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ClientError{OriginalErr: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIStatusError{StatusCode: resp.StatusCode, Body: body}
	}

	return body, nil
}

func buildLimiter(cfg RateLimitConfig) *rate.Limiter {
	requestsPerMinute := cfg.RequestsPerMinute
	if requestsPerMinute <= 0 {
		requestsPerMinute = DefaultRequestsPerMinute
	}

	burst := cfg.Burst
	if burst <= 0 {
		burst = DefaultRateLimitBurst
	}

	limitPerSecond := rate.Limit(requestsPerMinute / SecondsPerMinute)
	if limitPerSecond <= 0 {
		limitPerSecond = rate.Limit(1)
	}

	return rate.NewLimiter(limitPerSecond, burst)
}

func (c *Client) waitForRateLimit(ctx context.Context) error {
	if err := c.waitForForcedDelay(ctx); err != nil {
		return err
	}

	if c.limiter == nil {
		return nil
	}

	return c.limiter.Wait(ctx)
}

func (c *Client) waitForForcedDelay(ctx context.Context) error {
	for {
		c.mu.Lock()
		waitUntil := c.forceWaitUntil
		c.mu.Unlock()

		if waitUntil.IsZero() {
			return nil
		}

		now := time.Now()
		if !now.Before(waitUntil) {
			c.clearForcedDelay(waitUntil)
			return nil
		}

		timer := time.NewTimer(waitUntil.Sub(now))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
			c.clearForcedDelay(waitUntil)
		}
	}
}

func (c *Client) clearForcedDelay(previous time.Time) {
	c.mu.Lock()
	if previous.Equal(c.forceWaitUntil) {
		c.forceWaitUntil = time.Time{}
	}
	c.mu.Unlock()
}

// appUsage mirrors the JSON payload of the X-App-Usage header: percentages
// of the app-level quota consumed in the current window.
type appUsage struct {
	CallCount    float64 `json:"call_count"`
	TotalTime    float64 `json:"total_time"`
	TotalCPUTime float64 `json:"total_cputime"`
}

func (c *Client) applyRateHeaders(resp *http.Response) {
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.ParseFloat(retryAfter, ParseFloatBitSize); err == nil && seconds > 0 {
			c.deferRequests(time.Duration(seconds * float64(time.Second)))
		}
	}

	usageHeader := resp.Header.Get("X-App-Usage")
	if usageHeader == "" {
		return
	}

	var usage appUsage
	if err := json.Unmarshal([]byte(usageHeader), &usage); err != nil {
		return
	}

	max := usage.CallCount
	if usage.TotalTime > max {
		max = usage.TotalTime
	}
	if usage.TotalCPUTime > max {
		max = usage.TotalCPUTime
	}

	if max >= appUsagePauseThreshold {
		c.deferRequests(appUsagePause)
	}
}

func (c *Client) deferRequests(d time.Duration) {
	if d <= 0 {
		return
	}

	until := time.Now().Add(d)

	c.mu.Lock()
	if until.After(c.forceWaitUntil) {
		c.forceWaitUntil = until
	}
	c.mu.Unlock()
}

// APIStatusError represents a non-2xx HTTP response from the Graph API.
// The body usually contains the API's error envelope.
type APIStatusError struct {
	StatusCode int
	Body       []byte
}

// Error returns the error message for the APIStatusError.
func (e *APIStatusError) Error() string {
	return fmt.Sprintf("API request failed with status %d", e.StatusCode)
}

// ClientError represents an error that occurred within the client.
type ClientError struct {
	OriginalErr error
}

func (e *ClientError) Error() string {
	return e.OriginalErr.Error()
}

func (e *ClientError) Unwrap() error {
	return e.OriginalErr
}
