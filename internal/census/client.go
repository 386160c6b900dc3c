// Package census looks up city demographics in the US Census Bureau's
// American Community Survey API.
package census

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kartoza/match-odds/internal/cities"
	"github.com/kartoza/match-odds/internal/demographics"
)

// StatusError is a non-2xx census response.
type StatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("census api: status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed if repeated.
func (e *StatusError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client is a cities.Provider backed by the ACS place tables.
type Client struct {
	config     ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *zap.Logger

	mu       sync.Mutex
	places   []string
	loadedAt time.Time
}

var _ cities.Provider = (*Client)(nil)

// NewClient creates a census client.
func NewClient(config ClientConfig, logger *zap.Logger) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.RequestsPerSecond <= 0 {
		config.RequestsPerSecond = 5
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(config.RequestsPerSecond), config.Burst),
		logger:     logger.With(zap.String("component", "census")),
	}
}

// Search matches the query against every ACS place name. The place list is
// fetched once and reused for PlacesTTL.
func (c *Client) Search(ctx context.Context, query string) ([]string, error) {
	if strings.TrimSpace(query) == "" || cities.IsShortQuery(query) {
		return cities.Filter(nil, query), nil
	}

	places, err := c.Places(ctx)
	if err != nil {
		return nil, err
	}
	return cities.Filter(places, query), nil
}

// Places returns every place name the survey covers.
func (c *Client) Places(ctx context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.places != nil && (c.config.PlacesTTL <= 0 || time.Since(c.loadedAt) < c.config.PlacesTTL) {
		return c.places, nil
	}

	t, err := c.fetch(ctx, []string{VarName})
	if err != nil {
		return nil, eris.Wrap(err, "census: list places")
	}
	c.places = t.names()
	c.loadedAt = time.Now()
	c.logger.Info("loaded census places", zap.Int("count", len(c.places)))
	return c.places, nil
}

// Lookup fetches the profile variables for every place and maps the row
// whose name matches exactly.
func (c *Client) Lookup(ctx context.Context, name string) (*demographics.Profile, error) {
	t, err := c.fetch(ctx, profileVariables)
	if err != nil {
		return nil, eris.Wrapf(err, "census: lookup %q", name)
	}

	row, ok := t.find(name)
	if !ok {
		return nil, cities.ErrNotFound
	}
	p, err := t.toProfile(row)
	if err != nil {
		return nil, eris.Wrapf(err, "census: lookup %q", name)
	}
	return p, nil
}

func (c *Client) fetch(ctx context.Context, variables []string) (*table, error) {
	q := url.Values{}
	q.Set("get", strings.Join(variables, ","))
	q.Set("for", "place:*")
	q.Set("in", "state:*")
	if c.config.APIKey != "" {
		q.Set("key", c.config.APIKey)
	}

	var raw [][]*string
	if err := c.doRequest(ctx, c.config.BaseURL+"?"+q.Encode(), &raw); err != nil {
		return nil, err
	}
	return newTable(raw)
}

// doRequest performs a GET with rate limiting and retries.
func (c *Client) doRequest(ctx context.Context, fullURL string, result interface{}) error {
	var lastErr error
	for attempt := 0; attempt <= c.config.Retry.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := c.config.Retry.Backoff(attempt)
			var se *StatusError
			if errors.As(lastErr, &se) && se.RetryAfter > backoff {
				backoff = se.RetryAfter
			}
			c.logger.Debug("retrying census request", zap.Int("attempt", attempt), zap.Duration("backoff", backoff), zap.Error(lastErr))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limiter: %w", err)
		}

		err := c.doSingleRequest(ctx, fullURL, result)
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}
	}

	return fmt.Errorf("request failed after %d retries: %w", c.config.Retry.MaxRetries, lastErr)
}

func (c *Client) doSingleRequest(ctx context.Context, fullURL string, result interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		se := &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		if ra := resp.Header.Get("Retry-After"); ra != "" {
			if seconds, err := strconv.Atoi(ra); err == nil {
				se.RetryAfter = time.Duration(seconds) * time.Second
			}
		}
		return se
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

func isRetryable(err error) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF)
}
