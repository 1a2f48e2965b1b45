package helpers

import (
	"context"
	mathrand "math/rand"
	"sync"
	"time"
)

// Pacer blocks between outbound requests for base + uniform(0, jitter).
// It is not a token bucket: every call waits the full delay.
type Pacer struct {
	Base   time.Duration
	Jitter time.Duration

	mu    sync.Mutex
	rnd   *mathrand.Rand
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPacer creates a pacer with a time-seeded random source
func NewPacer(base, jitter time.Duration) *Pacer {
	return &Pacer{
		Base:   base,
		Jitter: jitter,
		rnd:    mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
		sleep:  SleepContext,
	}
}

// Delay returns the next delay without sleeping
func (p *Pacer) Delay() time.Duration {
	if p.Jitter <= 0 {
		return p.Base
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Base + time.Duration(p.rnd.Float64()*float64(p.Jitter))
}

// Wait sleeps for the next delay or until ctx is done
func (p *Pacer) Wait(ctx context.Context) error {
	return p.sleep(ctx, p.Delay())
}

// WithSleep replaces the sleep function, mainly for tests
func (p *Pacer) WithSleep(sleep func(ctx context.Context, d time.Duration) error) *Pacer {
	p.sleep = sleep
	return p
}

// Pace blocks for base + uniform(0, jitter)
func Pace(ctx context.Context, base, jitter time.Duration) error {
	return NewPacer(base, jitter).Wait(ctx)
}

// SleepContext sleeps for d or returns ctx.Err() when ctx ends first
func SleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
