package resilience

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

const (
	// maxAttempts keeps the budget low: a single transient failure should be
	// masked by one retry, not hammered by many.
	maxAttempts   = 3
	baseDelay     = 100 * time.Millisecond
	maxDelay      = 2 * time.Second
	backoffFactor = 2.0
	jitterFactor  = 0.1
)

// Executor runs store calls with retry-with-classification and a circuit
// breaker. Fatal errors are surfaced immediately; transient ones are retried
// up to the attempt ceiling, after which the last error is surfaced unchanged.
type Executor struct {
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
	classify func(error) Classification
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewExecutor creates an executor with the default classifier
func NewExecutor(logger *zap.Logger) *Executor {
	settings := gobreaker.Settings{
		Name: "document-store",
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		Timeout: 10 * time.Second,
	}
	return &Executor{
		breaker:  gobreaker.NewCircuitBreaker(settings),
		logger:   logger,
		classify: Classify,
		sleep:    sleepCtx,
	}
}

// Do executes fn, retrying per the classifier's verdict
func (e *Executor) Do(ctx context.Context, operation string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context done before attempt %d: %w", attempt+1, err)
		}

		_, err := e.breaker.Execute(func() (interface{}, error) {
			return nil, fn()
		})
		if err == nil {
			if attempt > 0 {
				e.logger.Info("operation succeeded after retry",
					zap.String("operation", operation),
					zap.Int("attempt", attempt+1),
				)
			}
			return nil
		}

		lastErr = err

		verdict := e.classify(err)
		if !verdict.Retryable || attempt == maxAttempts-1 {
			break
		}

		delay := e.delayFor(verdict, attempt)
		e.logger.Warn("retrying operation",
			zap.String("operation", operation),
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if err := e.sleep(ctx, delay); err != nil {
			return fmt.Errorf("context done during retry delay: %w", err)
		}
	}

	return lastErr
}

// delayFor scales the classifier's base delay exponentially with jitter
func (e *Executor) delayFor(verdict Classification, attempt int) time.Duration {
	base := verdict.Delay
	if base <= 0 {
		base = baseDelay
	}

	scaled := float64(base) * math.Pow(backoffFactor, float64(attempt))
	if scaled > float64(maxDelay) {
		scaled = float64(maxDelay)
	}

	// The top-level generator is safe for concurrent use; one Executor
	// instance serves every in-flight store call.
	jitter := jitterFactor * scaled * (rand.Float64()*2 - 1)
	final := scaled + jitter
	if final < 0 {
		final = 0
	}
	return time.Duration(final)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
