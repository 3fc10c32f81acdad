package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by Poll when the wait budget is exhausted before the
// condition reports done.
var ErrTimeout = errors.New("wait budget exhausted")

// PollConfig holds configuration for fixed-interval polling
type PollConfig struct {
	Interval time.Duration // Fixed wait between checks
	MaxWait  time.Duration // Upper bound on the total wait; zero means no bound
}

// DefaultPollConfig matches the remote file processing cadence
var DefaultPollConfig = PollConfig{
	Interval: 5 * time.Second,
	MaxWait:  10 * time.Minute,
}

// CheckFunc reports whether the awaited condition holds. A non-nil error stops
// polling immediately and is returned unchanged.
type CheckFunc func(ctx context.Context, attempt int) (done bool, err error)

// Poll calls check until it reports done, returns an error, the context is
// cancelled, or MaxWait elapses. The first check runs immediately. Polling
// never retries a failed check.
func Poll(ctx context.Context, cfg PollConfig, check CheckFunc) error {
	if cfg.Interval <= 0 {
		return fmt.Errorf("poll interval must be positive, got %s", cfg.Interval)
	}

	var deadline <-chan time.Time
	if cfg.MaxWait > 0 {
		timer := time.NewTimer(cfg.MaxWait)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for attempt := 1; ; attempt++ {
		done, err := check(ctx, attempt)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline:
			return fmt.Errorf("%w after %s (%d checks)", ErrTimeout, cfg.MaxWait, attempt)
		case <-ticker.C:
		}
	}
}
