package backend

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	// maxNetworkRetries is how many times a transport failure is retried.
	maxNetworkRetries = 3
	// maxHTTPAttempts bounds attempts for other failures.
	maxHTTPAttempts = 2
)

// GetProfile fetches the driver profile with retries:
// auth failures are never retried, network failures are retried up to
// three times with exponential backoff, anything else gets one retry.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var (
		profile  *Profile
		attempts int
	)

	op := func() error {
		attempts++
		p, err := c.fetchProfile(ctx)
		if err == nil {
			profile = p
			return nil
		}
		if !shouldRetry(attempts, err) {
			return backoff.Permanent(err)
		}
		return err
	}

	if err := backoff.Retry(op, backoff.WithContext(c.newBackOff(), ctx)); err != nil {
		return nil, err
	}
	return profile, nil
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryBase
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = 30 * time.Second
	b.MaxElapsedTime = 0
	return b
}

// shouldRetry decides whether another attempt follows attempt number n.
func shouldRetry(n int, err error) bool {
	switch {
	case IsAuthError(err):
		return false
	case IsNetworkError(err):
		return n <= maxNetworkRetries
	default:
		return n < maxHTTPAttempts
	}
}
