package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
)

const (
	DefaultIterations = 3
	DefaultWait       = 600000 * time.Millisecond
)

// ErrMaxRetriesExceeded is returned once every attempt of an operation failed.
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Policy defines how a failing operation is retried.
// The delay between attempts is fixed: no exponential backoff, no jitter.
type Policy struct {
	// Iterations is the total number of attempts.
	Iterations int
	// Wait is the pause before every new attempt.
	Wait time.Duration
	// Classifier decides whether an error is worth another attempt.
	// A nil Classifier retries every error.
	Classifier Classifier
}

// DefaultPolicy returns 3 attempts spaced by 10 minutes, retrying every error.
func DefaultPolicy() Policy {
	return Policy{
		Iterations: DefaultIterations,
		Wait:       DefaultWait,
	}
}

func (p Policy) iterations() int {
	if p.Iterations <= 0 {
		return DefaultIterations
	}
	return p.Iterations
}

func (p Policy) classify(err error) Decision {
	if p.Classifier == nil {
		return Decision{Class: ClassTransient, Reason: "retry_all"}
	}
	return p.Classifier(err)
}

// Do runs fn until it succeeds, returns a terminal error, or the policy runs out of attempts.
// fn is invoked afresh on every attempt.
func Do[T any](ctx context.Context, p Policy, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	logger := logx.WithContext(ctx)
	iterations := p.iterations()

	var lastErr error
	for attempt := 1; attempt <= iterations; attempt++ {
		if err := ctx.Err(); err != nil {
			return zero, fmt.Errorf("%s: retry cancelled: %w", operation, err)
		}

		res, err := fn(ctx)
		if err == nil {
			if attempt > 1 {
				logger.Infof("%s succeeded after %d attempts", operation, attempt)
			}
			return res, nil
		}
		lastErr = err

		decision := p.classify(err)
		if !decision.IsTransient() {
			logger.Errorf("%s failed with terminal error (%s): %v", operation, decision.Reason, err)
			return zero, err
		}

		if attempt == iterations {
			break
		}

		logger.Infof("%s failed (attempt %d/%d): %v, retry in %s...", operation, attempt, iterations, err, p.Wait)
		if err := sleep(ctx, p.Wait); err != nil {
			return zero, fmt.Errorf("%s: retry cancelled: %w", operation, err)
		}
	}

	return zero, fmt.Errorf("%s: %w after %d attempts: %w", operation, ErrMaxRetriesExceeded, iterations, lastErr)
}

// DoErr is Do for operations without a result.
func DoErr(ctx context.Context, p Policy, operation string, fn func(ctx context.Context) error) error {
	_, err := Do(ctx, p, operation, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func sleep(ctx context.Context, d time.Duration) error {
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
