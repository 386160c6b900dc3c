package census

import (
	"math/rand"
	"time"
)

// DefaultBaseURL is the ACS 1-year 2022 endpoint.
const DefaultBaseURL = "https://api.census.gov/data/2022/acs/acs1"

// ClientConfig configures the census client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// RequestsPerSecond caps the sustained request rate; Burst allows short spikes.
	RequestsPerSecond float64
	Burst             int

	// PlacesTTL is how long the list of place names is reused for searches.
	PlacesTTL time.Duration

	Retry RetryConfig
}

// DefaultClientConfig returns defaults for the public census API.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		BaseURL:           DefaultBaseURL,
		Timeout:           30 * time.Second,
		RequestsPerSecond: 5,
		Burst:             2,
		PlacesTTL:         12 * time.Hour,
		Retry:             DefaultRetryConfig(),
	}
}

// RetryConfig controls retries of failed requests.
type RetryConfig struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
	// Jitter is the fraction of the backoff randomized either way.
	Jitter float64
}

// DefaultRetryConfig retries three times starting at half a second.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:        3,
		InitialBackoff:    500 * time.Millisecond,
		MaxBackoff:        10 * time.Second,
		BackoffMultiplier: 2,
		Jitter:            0.1,
	}
}

// Backoff returns the wait before the given retry attempt (1-based).
func (c RetryConfig) Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return c.jitter(float64(c.InitialBackoff))
	}

	backoff := float64(c.InitialBackoff)
	for i := 1; i < attempt; i++ {
		backoff *= c.BackoffMultiplier
	}
	if backoff > float64(c.MaxBackoff) {
		backoff = float64(c.MaxBackoff)
	}
	return c.jitter(backoff)
}

func (c RetryConfig) jitter(d float64) time.Duration {
	if c.Jitter <= 0 {
		return time.Duration(d)
	}
	delta := d * c.Jitter
	return time.Duration(d - delta + rand.Float64()*2*delta)
}
