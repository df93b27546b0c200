package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

const transientFetchRetryBudget = 3

// pollPolicy controls how often a process status is fetched.
type pollPolicy struct {
	interval    time.Duration
	maxInterval time.Duration
	timeout     time.Duration
}

func (p pollPolicy) next(delay time.Duration) time.Duration {
	delay = delay * 3 / 2
	if p.maxInterval > 0 && delay > p.maxInterval {
		return p.maxInterval
	}
	return delay
}

func (c *client) pollPolicy() pollPolicy {
	return pollPolicy{
		interval:    c.pollInterval,
		maxInterval: c.maxPollInterval,
		timeout:     c.processingTimeout,
	}
}

// withProcessingTimeout wraps the context with the provided timeout if it lacks a deadline.
func withProcessingTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, hasDeadline := ctx.Deadline(); hasDeadline || timeout <= 0 {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, timeout)
}

// waitWithPolling repeatedly fetches task status until completion, failure, or timeout.
// The delay between fetches starts at policy.interval and grows up to policy.maxInterval.
func waitWithPolling[T any](ctx context.Context, id string, policy pollPolicy, operation Operation,
	fetch func(context.Context, string) (*T, error),
	evaluate func(*T) (bool, error),
) (*T, error) {
	delay := policy.interval
	if delay <= 0 {
		delay = DefaultPollInterval
	}

	ctx, cancel := withProcessingTimeout(ctx, policy.timeout)
	defer cancel()

	retriesLeft := transientFetchRetryBudget

	for {
		result, err := fetch(ctx, id)
		if err != nil {
			if retriesLeft > 0 && isTransientError(err) {
				retriesLeft--
				if err := waitForNextPoll(ctx, delay, operation); err != nil {
					return nil, err
				}
				continue
			}
			return nil, err
		}

		retriesLeft = transientFetchRetryBudget

		done, evalErr := evaluate(result)
		if evalErr != nil {
			return nil, evalErr
		}
		if done {
			return result, nil
		}

		if err := waitForNextPoll(ctx, delay, operation); err != nil {
			return nil, err
		}
		delay = policy.next(delay)
	}
}

// waitForNextPoll blocks for delay or until context cancellation.
func waitForNextPoll(ctx context.Context, delay time.Duration, operation Operation) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting for %s cancelled: %w", operation, ctx.Err())
	case <-timer.C:
		return nil
	}
}

// isTransientError reports whether an error is temporary and merits a retry.
func isTransientError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}

	type temporary interface {
		Temporary() bool
	}

	var tempErr temporary
	return errors.As(err, &tempErr) && tempErr.Temporary()
}
