package riot

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const (
	// Regional routing value for Account-V1 and Match-V5
	RegionalBaseURL = "https://americas.api.riotgames.com"

	// Platform routing host template for Summoner-V4, e.g. na1.api.riotgames.com
	PlatformBaseURLFormat = "https://%s.api.riotgames.com"

	defaultRetryAfter    = 1 * time.Second
	defaultMaxRetries    = 5
	defaultMinInterval   = 50 * time.Millisecond
	defaultClientTimeout = 10 * time.Second
)

// SleepFunc suspends the caller for d or until ctx is done
type SleepFunc func(ctx context.Context, d time.Duration) error

// IdentityCache stores resolved Riot ID -> PUUID mappings
type IdentityCache interface {
	GetPUUID(ctx context.Context, riotID string) (string, bool, error)
	SetPUUID(ctx context.Context, riotID, puuid string) error
}

// Client is a Riot Games API client with rate limiting
type Client struct {
	apiKey     string
	httpClient *http.Client

	regionalBaseURL string
	platformFormat  string
	maxRetries      int
	sleep           SleepFunc
	cache           IdentityCache

	// Simple rate limiter
	mu          sync.Mutex
	lastRequest time.Time
	minInterval time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithRegionalBaseURL overrides the Account-V1/Match-V5 host
func WithRegionalBaseURL(url string) Option {
	return func(c *Client) { c.regionalBaseURL = url }
}

// WithPlatformBaseURLFormat overrides the Summoner-V4 host template; it must
// contain exactly one %s for the platform id.
func WithPlatformBaseURLFormat(format string) Option {
	return func(c *Client) { c.platformFormat = format }
}

// WithHTTPClient replaces the pooled HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithMaxRetries caps consecutive 429 retries for a single request
func WithMaxRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.maxRetries = n
		}
	}
}

// WithMinInterval sets the minimum spacing between outgoing requests
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) { c.minInterval = d }
}

// WithSleep replaces the function used to wait out 429 responses
func WithSleep(fn SleepFunc) Option {
	return func(c *Client) { c.sleep = fn }
}

// WithIdentityCache enables caching of Riot ID lookups
func WithIdentityCache(cache IdentityCache) Option {
	return func(c *Client) { c.cache = cache }
}

// NewClient creates a new Riot API client. The API key is held by the client
// and sent as a header on every request; it never appears in a URL.
func NewClient(apiKey string, opts ...Option) *Client {
	c := &Client{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: defaultClientTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 100,
				IdleConnTimeout:     90 * time.Second,
				ForceAttemptHTTP2:   true,
			},
		},
		regionalBaseURL: RegionalBaseURL,
		platformFormat:  PlatformBaseURLFormat,
		maxRetries:      defaultMaxRetries,
		sleep:           sleepContext,
		// Rate limit: ~20 requests per second (50ms between requests)
		minInterval: defaultMinInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases idle pooled connections
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (c *Client) throttle() {
	c.mu.Lock()
	defer c.mu.Unlock()
	elapsed := time.Since(c.lastRequest)
	if elapsed < c.minInterval {
		time.Sleep(c.minInterval - elapsed)
	}
	c.lastRequest = time.Now()
}

// doRequest performs a GET with rate limiting. A 429 response is retried after
// the server-provided Retry-After delay, up to maxRetries times.
func (c *Client) doRequest(ctx context.Context, url string) (*http.Response, error) {
	for attempt := 0; ; attempt++ {
		c.throttle()

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("X-Riot-Token", c.apiKey)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			slog.Error("Riot API request failed", "url", url, "error", err)
			return nil, fmt.Errorf("%w: %v", ErrAPICallFailed, err)
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			return resp, nil
		}

		retryAfter := parseRetryAfter(resp.Header.Get("Retry-After"))
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if attempt >= c.maxRetries {
			slog.Error("Rate limit retries exhausted", "url", url, "attempts", attempt+1)
			return nil, ErrRateLimitExhausted
		}

		slog.Warn("Rate limit exceeded, retrying", "url", url, "retryAfter", retryAfter, "attempt", attempt+1)
		if err := c.sleep(ctx, retryAfter); err != nil {
			return nil, err
		}
	}
}

// get performs a GET request and decodes the JSON response
func (c *Client) get(ctx context.Context, url string, result interface{}) error {
	resp, err := c.doRequest(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		statusErr := &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
		if resp.StatusCode == http.StatusNotFound {
			slog.Debug("Riot API resource not found", "url", url)
		} else {
			slog.Error("Riot API error", "url", url, "status", resp.StatusCode)
		}
		return statusErr
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		slog.Error("Malformed Riot API response", "url", url, "error", err)
		return fmt.Errorf("%w: failed to decode response: %v", ErrAPICallFailed, err)
	}

	return nil
}

func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return defaultRetryAfter
	}
	seconds, err := strconv.Atoi(header)
	if err != nil || seconds < 0 {
		return defaultRetryAfter
	}
	return time.Duration(seconds) * time.Second
}
