package embed

import (
	"context"
	"log/slog"
	"time"
)

// RetryPolicy bounds how often a failed embedding call is repeated.
type RetryPolicy struct {
	MaxAttempts int           // total attempts, at least 1
	Delay       time.Duration // wait before the second attempt
	Multiplier  float64       // delay growth per attempt; 1 keeps it fixed
}

// DefaultRetryPolicy makes three attempts one second apart.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, Delay: time.Second, Multiplier: 1}
}

func (p RetryPolicy) delay(attempt int) time.Duration {
	d := float64(p.Delay)
	for range attempt {
		d *= max(p.Multiplier, 1)
	}
	return time.Duration(d)
}

// Retrying wraps an Embedder with a RetryPolicy.
type Retrying struct {
	next   Embedder
	policy RetryPolicy
	logger *slog.Logger
}

// NewRetrying returns an Embedder that retries failed calls. When every
// attempt fails the error is an *ExhaustedError.
func NewRetrying(next Embedder, policy RetryPolicy, logger *slog.Logger) *Retrying {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrying{next: next, policy: policy, logger: logger}
}

// Embed implements Embedder.
func (r *Retrying) Embed(ctx context.Context, text string) ([]float64, error) {
	var lastErr error
	attempts := 0

	for attempt := range r.policy.MaxAttempts {
		if attempt > 0 {
			wait := r.policy.delay(attempt - 1)
			r.logger.Debug("retrying embedding", "attempt", attempt+1, "wait", wait, "err", lastErr)
			select {
			case <-ctx.Done():
				return nil, &ExhaustedError{Attempts: attempts, Err: ctx.Err()}
			case <-time.After(wait):
			}
		}

		attempts++
		vec, err := r.next.Embed(ctx, text)
		if err == nil && len(vec) == 0 {
			err = ErrEmptyVector
		}
		if err == nil {
			return vec, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			break
		}
	}

	return nil, &ExhaustedError{Attempts: attempts, Err: lastErr}
}
