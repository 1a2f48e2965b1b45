package crawler

import (
	"context"
	mathrand "math/rand"
	"time"

	"sjsage522/dealerworker/config"
	"sjsage522/dealerworker/helpers"
	crawlerrors "sjsage522/dealerworker/pkg/errors"
)

// RetryPolicy is the one retry policy shared by every vendor. Retryable
// failures (transport, timeout, 5xx, soft throttle, rate limit) are retried
// with exponential backoff plus jitter; a soft throttle waits the longer
// SoftThrottleDelay instead. Terminal failures return at once.
type RetryPolicy struct {
	MaxAttempts       int
	BaseDelay         time.Duration
	MaxDelay          time.Duration
	Jitter            time.Duration
	SoftThrottleDelay time.Duration

	// OnRetry is called before each wait
	OnRetry func(attempt int, err error, delay time.Duration)

	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy builds the policy from configuration
func NewRetryPolicy(cfg *config.Config) RetryPolicy {
	return RetryPolicy{
		MaxAttempts:       cfg.RetryMaxAttempts,
		BaseDelay:         cfg.RetryBaseDelay,
		MaxDelay:          cfg.RetryMaxDelay,
		Jitter:            cfg.RetryJitter,
		SoftThrottleDelay: cfg.SoftThrottleDelay,
	}
}

// WithSleep replaces the sleep function, mainly for tests
func (p RetryPolicy) WithSleep(sleep func(ctx context.Context, d time.Duration) error) RetryPolicy {
	p.sleep = sleep
	return p
}

// Delay returns the wait before the attempt following a failed attempt
// (1-based).
func (p RetryPolicy) Delay(attempt int, err error) time.Duration {
	var d time.Duration
	if crawlerrors.Is(err, crawlerrors.ErrorTypeSoftThrottle) {
		d = p.SoftThrottleDelay
	} else {
		d = p.BaseDelay
		for i := 1; i < attempt && (p.MaxDelay <= 0 || d < p.MaxDelay); i++ {
			d *= 2
		}
		if p.MaxDelay > 0 && d > p.MaxDelay {
			d = p.MaxDelay
		}
	}
	if p.Jitter > 0 {
		d += time.Duration(mathrand.Int63n(int64(p.Jitter)))
	}
	return d
}

// Do runs op until it succeeds, fails terminally, runs out of attempts or
// ctx ends. It returns the last error.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = helpers.SleepContext
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		err = op(ctx)
		if err == nil {
			return nil
		}
		if !crawlerrors.IsRetryable(err) || attempt == attempts {
			return err
		}

		delay := p.Delay(attempt, err)
		if p.OnRetry != nil {
			p.OnRetry(attempt, err, delay)
		}
		if sleepErr := sleep(ctx, delay); sleepErr != nil {
			return sleepErr
		}
	}
	return err
}
