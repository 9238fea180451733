package automation

import (
	"context"
	"errors"
	"time"
)

var ErrTimeout = errors.New("timed out")

// Sleep pauses for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
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

// Poll evaluates cond every interval until it holds or timeout elapses.
// cond is always evaluated at least once.
func Poll(ctx context.Context, interval, timeout time.Duration, cond func() bool) error {
	deadline := time.Now().Add(timeout)
	for {
		if cond() {
			return nil
		}
		if !time.Now().Before(deadline) {
			return ErrTimeout
		}
		wait := interval
		if remaining := time.Until(deadline); remaining < wait {
			wait = remaining
		}
		if err := Sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// PollRounds evaluates cond up to rounds times, sleeping interval between tries.
func PollRounds(ctx context.Context, interval time.Duration, rounds int, cond func() bool) error {
	for i := 0; i < rounds; i++ {
		if cond() {
			return nil
		}
		if i == rounds-1 {
			break
		}
		if err := Sleep(ctx, interval); err != nil {
			return err
		}
	}
	return ErrTimeout
}
