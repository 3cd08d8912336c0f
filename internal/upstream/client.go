// =============================
// File: internal/upstream/client.go
// =============================
package upstream

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/ratelimit"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/topbags/internal/metrics"
)

// DefaultTimeout bounds every upstream call so one hung request cannot stall a batch.
const DefaultTimeout = 15 * time.Second

// maxErrorBody limits how much of a failed response is kept for diagnostics.
const maxErrorBody = 512

// Client is a small read-only JSON client shared by all upstream adapters.
type Client struct {
	source  string
	http    *http.Client
	limiter ratelimit.Limiter
	headers map[string]string
	logger  *zap.Logger
	metrics *metrics.Collector
}

// Option configures Client.
type Option func(*Client)

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRateLimit caps outgoing requests per minute. Zero disables limiting.
func WithRateLimit(perMinute int) Option {
	return func(c *Client) {
		if perMinute > 0 {
			c.limiter = ratelimit.New(perMinute, ratelimit.Per(time.Minute))
		} else {
			c.limiter = ratelimit.NewUnlimited()
		}
	}
}

// WithHeader adds a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if value != "" {
			c.headers[key] = value
		}
	}
}

// WithMetrics attaches a metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient creates a client labelled with source for logs and metrics.
func NewClient(source string, logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		source:  source,
		http:    &http.Client{Timeout: DefaultTimeout},
		limiter: ratelimit.NewUnlimited(),
		headers: map[string]string{"Accept": "application/json"},
		logger:  logger.Named(source),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Source returns the label of the client.
func (c *Client) Source() string {
	return c.source
}

// Metrics returns the attached collector, possibly nil.
func (c *Client) Metrics() *metrics.Collector {
	return c.metrics
}

// Get performs a GET and returns status and body.
// Transport failures are returned as errors; any HTTP status is returned as-is.
func (c *Client) Get(ctx context.Context, url string) (int, []byte, error) {
	if err := c.wait(ctx); err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read body: %w", err)
	}
	return resp.StatusCode, body, nil
}

// wait blocks for a rate-limit slot or until ctx is done.
// ratelimit.Take is not cancellable, so an abandoned slot is still consumed in the background.
func (c *Client) wait(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	ready := make(chan struct{})
	go func() {
		c.limiter.Take()
		close(ready)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-ready:
		return nil
	}
}

// RecordFetch reports the outcome of a call made through Get.
func (c *Client) RecordFetch(outcome string, started time.Time) {
	c.metrics.RecordFetch(c.source, outcome, time.Since(started))
}

// GetJSON performs a GET and decodes a 200 response into out.
// Non-200 responses yield *StatusError, undecodable bodies yield ErrMalformed.
func (c *Client) GetJSON(ctx context.Context, url string, out interface{}) error {
	start := time.Now()
	status, body, err := c.Get(ctx, url)
	if err != nil {
		c.metrics.RecordFetch(c.source, metrics.OutcomeError, time.Since(start))
		return err
	}

	if status != http.StatusOK {
		c.metrics.RecordFetch(c.source, metrics.OutcomeError, time.Since(start))
		return &StatusError{Code: status, Body: truncate(body, maxErrorBody)}
	}

	if err := json.Unmarshal(body, out); err != nil {
		c.metrics.RecordFetch(c.source, metrics.OutcomeError, time.Since(start))
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	c.metrics.RecordFetch(c.source, metrics.OutcomeOK, time.Since(start))
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n])
	}
	return string(b)
}
