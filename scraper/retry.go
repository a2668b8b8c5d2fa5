package scraper

import (
	"context"
	"time"

	"github.com/aluiziolira/go-scrape-catalog/config"
)

// retryPolicy bounds how often a page fetch is re-attempted. With
// maxRetries == 0 every page is attempted exactly once.
type retryPolicy struct {
	maxRetries int
	base       time.Duration
	max        time.Duration
}

func newRetryPolicy(cfg *config.Config) retryPolicy {
	return retryPolicy{
		maxRetries: cfg.MaxRetries,
		base:       cfg.RetryBackoff,
		max:        cfg.RetryBackoffMax,
	}
}

// shouldRetry reports whether attempt (0-based) may be followed by another.
func (rp retryPolicy) shouldRetry(attempt int, err error) bool {
	return attempt < rp.maxRetries && retryable(err)
}

func (rp retryPolicy) backoff(attempt int) time.Duration {
	if attempt <= 0 {
		attempt = 1
	}

	base := rp.base
	if base <= 0 {
		base = 100 * time.Millisecond
	}

	shift := attempt - 1
	if shift > 30 {
		shift = 30
	}
	delay := base * time.Duration(1<<shift)
	if rp.max > 0 && (delay > rp.max || delay <= 0) {
		delay = rp.max
	}
	return delay
}

// wait sleeps for the backoff of attempt. It returns false if ctx ends first,
// in which case the caller gives up on further attempts.
func (rp retryPolicy) wait(ctx context.Context, attempt int) bool {
	timer := time.NewTimer(rp.backoff(attempt))
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
