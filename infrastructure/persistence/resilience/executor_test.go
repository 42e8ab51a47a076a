package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apperrors "skillcourt-backend/pkg/errors"
)

// newTestExecutor disables real sleeping and lets tests observe classifier calls.
func newTestExecutor(t *testing.T) (*Executor, *int) {
	t.Helper()
	classifyCalls := 0
	e := NewExecutor(zap.NewNop())
	e.sleep = func(ctx context.Context, d time.Duration) error { return nil }
	inner := e.classify
	e.classify = func(err error) Classification {
		classifyCalls++
		return inner(err)
	}
	return e, &classifyCalls
}

func TestExecutor_SuccessFirstAttempt(t *testing.T) {
	e, classifyCalls := newTestExecutor(t)

	calls := 0
	err := e.Do(context.Background(), "getById", func() error {
		calls++
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 0, *classifyCalls)
}

func TestExecutor_MasksSingleTransientFailure(t *testing.T) {
	e, classifyCalls := newTestExecutor(t)

	calls := 0
	err := e.Do(context.Background(), "create", func() error {
		calls++
		if calls == 1 {
			return apperrors.NewUnavailableError("dynamodb")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	// Classified exactly once: for the single transient failure.
	assert.Equal(t, 1, *classifyCalls)
}

func TestExecutor_FatalErrorNotRetried(t *testing.T) {
	e, _ := newTestExecutor(t)

	calls := 0
	fatal := apperrors.NewValidationError("bad payload")
	err := e.Do(context.Background(), "create", func() error {
		calls++
		return fatal
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, errors.Is(err, fatal))
}

func TestExecutor_SurfacesLastErrorWhenBudgetExhausted(t *testing.T) {
	e, _ := newTestExecutor(t)

	calls := 0
	transient := apperrors.NewThrottledError("still throttled")
	err := e.Do(context.Background(), "update", func() error {
		calls++
		return transient
	})

	require.Error(t, err)
	assert.Equal(t, maxAttempts, calls)
	assert.True(t, errors.Is(err, transient))
}

func TestExecutor_RespectsContextCancellation(t *testing.T) {
	e, _ := newTestExecutor(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Do(ctx, "query", func() error {
		t.Fatal("operation must not run with a done context")
		return nil
	})

	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestExecutor_DelayIsSafeUnderConcurrentRetries(t *testing.T) {
	e := NewExecutor(zap.NewNop())
	verdict := Classification{Retryable: true, Delay: baseDelay}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for attempt := 0; attempt < maxAttempts; attempt++ {
				d := e.delayFor(verdict, attempt)
				assert.GreaterOrEqual(t, d, time.Duration(0))
			}
		}()
	}
	wg.Wait()
}

func TestExecutor_DelayGrowsPerAttempt(t *testing.T) {
	e := NewExecutor(zap.NewNop())

	verdict := Classification{Retryable: true, Delay: baseDelay}
	d0 := e.delayFor(verdict, 0)
	d2 := e.delayFor(verdict, 2)

	// Jitter is at most 10%, so attempt 2 must exceed attempt 0.
	assert.Greater(t, d2, d0)
	assert.LessOrEqual(t, d2, maxDelay+maxDelay/10)
}
