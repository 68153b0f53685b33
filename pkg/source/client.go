// Package source holds the plumbing shared by all SaaS source adapters: a
// rate-limited HTTP client, the fetch window, and the sync error taxonomy.
package source

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/consultia/bonusx/pkg/utils"
)

// DefaultMaxPages bounds every cursor loop; exceeding it is a PaginationError
// rather than an infinite fetch against a misbehaving source.
const DefaultMaxPages = 1000

// Client is a wrapper around an http.Client that implements a token-bucket
// rate limit and a circuit-breaker for one external SaaS endpoint.
type Client struct {
	source  string
	baseURL string
	headers map[string]string
	client  *http.Client

	// token-bucket
	tokens      int64
	maxTokens   int64
	refillEvery time.Duration
	lastRefill  atomic.Value // time.Time

	// circuit-breaker
	mu          sync.Mutex
	failures    int
	openedUntil time.Time

	breakerThreshold int
	breakerCooldown  time.Duration
}

// Opts is the set of options for a new Client.
type Opts struct {
	Source          string // source name used in errors ("timetracking", "crm", "survey")
	BaseURL         string
	Headers         map[string]string // auth and content headers sent on every request
	Timeout         time.Duration
	RPS             int
	Burst           int
	BreakerFailures int
	BreakerCooldown time.Duration
	HTTPClient      *http.Client
}

// NewClient creates a new Client with the given options.
func NewClient(o Opts) *Client {
	if o.RPS <= 0 {
		o.RPS = 10
	}
	if o.Burst <= 0 {
		o.Burst = 20
	}
	if o.Timeout <= 0 {
		o.Timeout = 15 * time.Second
	}
	if o.BreakerFailures <= 0 {
		o.BreakerFailures = 3
	}
	if o.BreakerCooldown <= 0 {
		o.BreakerCooldown = 5 * time.Second
	}

	client := o.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: o.Timeout}
	} else if client.Timeout == 0 {
		client.Timeout = o.Timeout
	}

	c := &Client{
		source:           o.Source,
		baseURL:          o.BaseURL,
		headers:          o.Headers,
		client:           client,
		maxTokens:        int64(o.Burst),
		refillEvery:      time.Second / time.Duration(o.RPS),
		breakerThreshold: o.BreakerFailures,
		breakerCooldown:  o.BreakerCooldown,
	}
	c.tokens = c.maxTokens
	c.lastRefill.Store(time.Now())
	return c
}

// Source returns the source name this client talks to.
func (c *Client) Source() string { return c.source }

// refill refills the token-bucket with new tokens if necessary.
func (c *Client) refill() {
	last := c.lastRefill.Load().(time.Time)
	now := time.Now()
	if now.Sub(last) >= c.refillEvery {
		if atomic.LoadInt64(&c.tokens) < c.maxTokens {
			atomic.AddInt64(&c.tokens, 1)
		}
		c.lastRefill.Store(now)
	}
}

// acquire acquires a token from the token-bucket, blocking if necessary.
func (c *Client) acquire(ctx context.Context) error {
	for {
		c.refill()
		if atomic.LoadInt64(&c.tokens) > 0 {
			atomic.AddInt64(&c.tokens, -1)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.refillEvery / 2):
		}
	}
}

// isOpen returns true while the breaker is in the OPEN state.
func (c *Client) isOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.openedUntil.IsZero() {
		return false
	}
	if time.Now().After(c.openedUntil) {
		c.openedUntil = time.Time{}
		c.failures = 0
		return false
	}
	return true
}

// noteFailure counts a failure and opens the breaker past the threshold.
func (c *Client) noteFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	if c.failures >= c.breakerThreshold {
		c.openedUntil = time.Now().Add(c.breakerCooldown)
	}
}

// noteSuccess resets the failure count.
func (c *Client) noteSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures = 0
}

// GetJSON sends a GET to path with the given query parameters and decodes the
// JSON response into out. Transport errors, timeouts, non-2xx statuses, and an
// open breaker all surface as *SourceUnavailableError: the caller's sync run
// must abort without touching the warehouse.
func (c *Client) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	if c.isOpen() {
		return &SourceUnavailableError{Source: c.source, Err: errBreakerOpen}
	}

	if err := c.acquire(ctx); err != nil {
		return &SourceUnavailableError{Source: c.source, Err: err}
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if reqErr != nil {
		return &SourceUnavailableError{Source: c.source, Err: reqErr}
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		c.noteFailure()
		return &SourceUnavailableError{Source: c.source, Err: err}
	}

	// From here on, always drain+close the body before returning.
	if resp.StatusCode >= 500 {
		c.noteFailure()
		_ = utils.DrainAndClose(resp.Body)
		return &SourceUnavailableError{Source: c.source, Status: resp.StatusCode}
	}
	if resp.StatusCode >= 300 {
		_ = utils.DrainAndClose(resp.Body)
		return &SourceUnavailableError{Source: c.source, Status: resp.StatusCode}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			_ = utils.DrainAndClose(resp.Body)
			c.noteFailure()
			return &SourceUnavailableError{Source: c.source, Err: err}
		}
	}

	c.noteSuccess()
	return utils.DrainAndClose(resp.Body)
}

var errBreakerOpen = breakerOpenError{}

type breakerOpenError struct{}

func (breakerOpenError) Error() string { return "circuit breaker open" }
