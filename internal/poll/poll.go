// Package poll drives bounded-attempt exponential-backoff polling of an
// eventually-consistent remote resource. It owns all retry behavior for the
// transcript-fetch path; orchestrators never retry remote calls themselves.
package poll

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"crm-relay/pkg/logger"
)

// ErrNotReady marks a fetch outcome where the remote resource does not exist
// yet (e.g. HTTP 404 for a transcript still being produced). Fetchers return
// it so the driver can log the attempt as "not ready" instead of as a fault.
// Either way the attempt is retried; no fetch error aborts the loop early.
var ErrNotReady = errors.New("poll: resource not ready")

// Config bounds the retry loop.
type Config struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// MaxDelay is an upper clamp on every computed backoff delay.
	MaxDelay time.Duration
}

// Fetch retrieves the remote resource once.
type Fetch[T any] func(ctx context.Context) (T, error)

// Valid reports whether a fetched value is usable. A rejection is treated
// exactly like a not-ready fetch.
type Valid[T any] func(T) bool

// Driver runs the loop. Sleep is injectable for deterministic tests; the
// default honors context cancellation.
type Driver[T any] struct {
	Cfg   Config
	Log   *slog.Logger
	Sleep func(ctx context.Context, d time.Duration)
}

func New[T any](cfg Config, log *slog.Logger) *Driver[T] {
	return &Driver[T]{Cfg: cfg, Log: log, Sleep: sleep}
}

// Run fetches until valid accepts a result or attempts exhaust.
//
// For attempt i (1-based) up to MaxAttempts: fetch; on acceptance return
// immediately. Otherwise, unless this was the last attempt, wait
// BaseDelay * 2^(i-1), clamped to MaxDelay, and try again.
//
// Exhaustion returns the zero value and false. Absence is not an error here;
// the caller decides whether it is fatal.
func (d *Driver[T]) Run(ctx context.Context, fetch Fetch[T], valid Valid[T]) (T, bool) {
	var zero T
	log := d.Log
	if log == nil {
		log = logger.From(ctx)
	}

	for attempt := 1; attempt <= d.Cfg.MaxAttempts; attempt++ {
		v, err := fetch(ctx)
		switch {
		case err == nil && valid(v):
			return v, true
		case err == nil:
			log.Info("poll: result not yet valid", "attempt", attempt, "max_attempts", d.Cfg.MaxAttempts)
		case errors.Is(err, ErrNotReady):
			log.Info("poll: not ready", "attempt", attempt, "max_attempts", d.Cfg.MaxAttempts)
		default:
			// Non-not-found remote errors carry detail but are still just a
			// retry trigger.
			log.Error("poll: fetch failed", "attempt", attempt, "max_attempts", d.Cfg.MaxAttempts, "err", err)
		}

		if attempt == d.Cfg.MaxAttempts {
			break
		}
		d.Sleep(ctx, d.Delay(attempt))
		if ctx.Err() != nil {
			return zero, false
		}
	}
	return zero, false
}

// Delay computes the backoff after the given 1-based attempt:
// BaseDelay * 2^(attempt-1), clamped to MaxDelay when one is configured.
func (d *Driver[T]) Delay(attempt int) time.Duration {
	delay := d.Cfg.BaseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if d.Cfg.MaxDelay > 0 && delay >= d.Cfg.MaxDelay {
			return d.Cfg.MaxDelay
		}
	}
	if d.Cfg.MaxDelay > 0 && delay > d.Cfg.MaxDelay {
		return d.Cfg.MaxDelay
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}
