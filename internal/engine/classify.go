package engine

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/famomatic/ytcourier/internal/types"
)

// classifyHTTPStatus maps a transport status code to a retry class.
func classifyHTTPStatus(status int) types.ErrorClass {
	switch {
	case status == http.StatusTooManyRequests:
		return types.ClassRateLimited
	case status == http.StatusForbidden,
		status == http.StatusPreconditionFailed,
		status >= 500:
		return types.ClassTransientBlock
	default:
		return types.ClassPermanent
	}
}

// classifyMessage falls back to upstream error text when no typed signal
// is available. Unrecognized failures default to transient.
func classifyMessage(err error) *types.UpstreamError {
	if errors.Is(err, context.DeadlineExceeded) {
		return &types.UpstreamError{
			Class:   types.ClassTransientBlock,
			Message: "attempt timed out",
			Err:     err,
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "too many requests"), strings.Contains(msg, "429"):
		return &types.UpstreamError{Class: types.ClassRateLimited, Message: err.Error(), Err: err}
	case strings.Contains(msg, "sign in"),
		strings.Contains(msg, "login"),
		strings.Contains(msg, "not a bot"),
		strings.Contains(msg, "captcha"):
		return &types.UpstreamError{Class: types.ClassTransientBlock, Message: err.Error(), Err: err}
	case strings.Contains(msg, "unavailable"),
		strings.Contains(msg, "private"),
		strings.Contains(msg, "removed"),
		strings.Contains(msg, "does not exist"),
		strings.Contains(msg, "invalid"):
		return &types.UpstreamError{Class: types.ClassPermanent, Message: err.Error(), Err: err}
	default:
		return &types.UpstreamError{Class: types.ClassTransientBlock, Message: err.Error(), Err: err}
	}
}
