// Package resilience classifies store failures and re-attempts the transient
// ones with exponential backoff behind a circuit breaker.
package resilience

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"

	apperrors "skillcourt-backend/pkg/errors"
)

// Classification is the verdict for a single failure: whether it is worth
// re-attempting and how long to wait before doing so.
type Classification struct {
	Retryable bool
	Delay     time.Duration
}

// Transient AWS error codes not covered by typed exceptions.
var retryableAPICodes = map[string]bool{
	"ThrottlingException":                   true,
	"ProvisionedThroughputExceededException": true,
	"RequestLimitExceeded":                   true,
	"InternalServerError":                    true,
	"ServiceUnavailable":                     true,
	"TransactionInProgressException":         true,
}

// Fatal AWS error codes; never retried regardless of transport behavior.
var fatalAPICodes = map[string]bool{
	"ValidationException":               true,
	"ConditionalCheckFailedException":   true,
	"AccessDeniedException":             true,
	"ResourceNotFoundException":         true,
	"ItemCollectionSizeLimitExceededException": true,
	"TransactionCanceledException":      true,
}

// Classify maps a failure to a retry verdict. It is pure and side-effect-free
// so it can be unit-tested without a store. The delay returned is the base
// delay for the first retry; the executor scales it per attempt.
func Classify(err error) Classification {
	if err == nil {
		return Classification{}
	}

	// Our own errors already carry the verdict.
	if appErr := apperrors.GetAppError(err); appErr != nil {
		return Classification{Retryable: appErr.Retryable, Delay: baseDelay}
	}

	// Context expiry is a caller decision, not a transient store failure.
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Classification{}
	}

	// Typed DynamoDB exceptions.
	var throughput *types.ProvisionedThroughputExceededException
	var internal *types.InternalServerError
	var limit *types.LimitExceededException
	if errors.As(err, &throughput) || errors.As(err, &internal) || errors.As(err, &limit) {
		return Classification{Retryable: true, Delay: baseDelay}
	}
	var conditional *types.ConditionalCheckFailedException
	var canceled *types.TransactionCanceledException
	var notFound *types.ResourceNotFoundException
	if errors.As(err, &conditional) || errors.As(err, &canceled) || errors.As(err, &notFound) {
		return Classification{}
	}

	// Untyped smithy API errors by code.
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		if fatalAPICodes[code] {
			return Classification{}
		}
		if retryableAPICodes[code] || apiErr.ErrorFault() == smithy.FaultServer {
			return Classification{Retryable: true, Delay: baseDelay}
		}
		return Classification{}
	}

	// Transport-level failures: the request may never have reached the store.
	var netErr net.Error
	if errors.As(err, &netErr) {
		return Classification{Retryable: true, Delay: baseDelay}
	}

	// Unknown errors default to fatal.
	return Classification{}
}
