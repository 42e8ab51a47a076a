package resilience

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"

	apperrors "skillcourt-backend/pkg/errors"
)

type fakeNetError struct{}

func (fakeNetError) Error() string   { return "connection reset" }
func (fakeNetError) Timeout() bool   { return true }
func (fakeNetError) Temporary() bool { return true }

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{
			name:      "nil error",
			err:       nil,
			retryable: false,
		},
		{
			name:      "throughput exceeded is transient",
			err:       &types.ProvisionedThroughputExceededException{Message: strPtr("slow down")},
			retryable: true,
		},
		{
			name:      "internal server error is transient",
			err:       &types.InternalServerError{Message: strPtr("oops")},
			retryable: true,
		},
		{
			name:      "conditional check failure is fatal",
			err:       &types.ConditionalCheckFailedException{Message: strPtr("condition")},
			retryable: false,
		},
		{
			name:      "transaction cancellation is fatal",
			err:       &types.TransactionCanceledException{Message: strPtr("cancelled")},
			retryable: false,
		},
		{
			name:      "validation by code is fatal",
			err:       &smithy.GenericAPIError{Code: "ValidationException", Message: "bad request"},
			retryable: false,
		},
		{
			name:      "access denied by code is fatal",
			err:       &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "no"},
			retryable: false,
		},
		{
			name:      "throttling by code is transient",
			err:       &smithy.GenericAPIError{Code: "ThrottlingException", Message: "throttled"},
			retryable: true,
		},
		{
			name:      "server fault is transient",
			err:       &smithy.GenericAPIError{Code: "SomethingElse", Message: "boom", Fault: smithy.FaultServer},
			retryable: true,
		},
		{
			name:      "network error is transient",
			err:       fakeNetError{},
			retryable: true,
		},
		{
			name:      "wrapped network error is transient",
			err:       fmt.Errorf("query failed: %w", fakeNetError{}),
			retryable: true,
		},
		{
			name:      "context cancellation is fatal",
			err:       context.Canceled,
			retryable: false,
		},
		{
			name:      "context deadline is fatal",
			err:       context.DeadlineExceeded,
			retryable: false,
		},
		{
			name:      "app error carries its own verdict (retryable)",
			err:       apperrors.NewUnavailableError("dynamodb"),
			retryable: true,
		},
		{
			name:      "app error carries its own verdict (fatal)",
			err:       apperrors.NewValidationError("bad record"),
			retryable: false,
		},
		{
			name:      "unknown error defaults to fatal",
			err:       errors.New("mystery"),
			retryable: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict := Classify(tt.err)
			assert.Equal(t, tt.retryable, verdict.Retryable)
			if tt.retryable {
				assert.Greater(t, verdict.Delay, time.Duration(0))
			}
		})
	}
}

func strPtr(s string) *string { return &s }
