package types

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates malformed input (not a video URL/resolution).
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoMatchingFormat indicates the upstream offered no usable encoding.
	ErrNoMatchingFormat = errors.New("no matching format")

	// ErrOutputNotFound indicates the extraction engine produced no media artifact.
	ErrOutputNotFound = errors.New("output not found")
)

// ErrorClass classifies upstream failures for retry policy.
type ErrorClass string

const (
	// ClassRateLimited means the upstream signalled too-many-requests.
	ClassRateLimited ErrorClass = "rate_limited"
	// ClassTransientBlock covers anti-automation signature/precondition
	// failures that tend to clear on their own.
	ClassTransientBlock ErrorClass = "transient_block"
	// ClassPermanent covers removed videos, invalid ids and missing formats.
	ClassPermanent ErrorClass = "permanent"
)

// UpstreamError wraps an extraction-engine failure with its retry class.
type UpstreamError struct {
	Class   ErrorClass
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("upstream %s: %s", e.Class, e.Message)
	}
	return fmt.Sprintf("upstream %s: %v", e.Class, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Retryable reports whether the executor may attempt the fetch again.
func (e *UpstreamError) Retryable() bool { return e.Class != ClassPermanent }

// ClassOf extracts the retry class from an error chain.
// Unclassified errors are treated as transient blocks, the defensive default.
func ClassOf(err error) ErrorClass {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue.Class
	}
	return ClassTransientBlock
}
