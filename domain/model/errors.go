package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrCredentialUnavailable = errors.New("credential unavailable")
	ErrUnsupportedPlatform   = errors.New("unsupported platform")
	ErrClaimLost             = errors.New("task is no longer claimed by this worker")
	ErrTaskNotFound          = errors.New("task not found")
)

// AdapterError is a failed call to an external platform. Body holds the
// platform's raw response when one was received.
type AdapterError struct {
	Platform   Platform
	Op         string
	StatusCode int
	Body       string
	Err        error
}

func (e *AdapterError) Error() string {
	switch {
	case e.StatusCode >= http.StatusMultipleChoices:
		return fmt.Sprintf("%s %s failed with status %d: %s", e.Platform, e.Op, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s %s failed: %v", e.Platform, e.Op, e.Err)
	default:
		return fmt.Sprintf("%s %s failed", e.Platform, e.Op)
	}
}

func (e *AdapterError) Unwrap() error { return e.Err }

// Retryable is true for transport failures, timeouts, throttling and 5xx.
// A 2xx with an unusable body is terminal since the post may exist.
func (e *AdapterError) Retryable() bool {
	if e.StatusCode == 0 {
		return e.Err != nil
	}
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= http.StatusInternalServerError
}

// IsRetryable classifies an error raised while dispatching a task.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrCredentialUnavailable) || errors.Is(err, ErrUnsupportedPlatform) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var adapterErr *AdapterError
	if errors.As(err, &adapterErr) {
		return adapterErr.Retryable()
	}
	return false
}
