package llmclient

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ClientError is the base error type for llmclient failures.
type ClientError struct {
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// TimeoutError indicates the inference call exceeded its bounded timeout.
type TimeoutError struct {
	ClientError
	Provider string
}

// UnavailableError indicates a transport, auth, or provider failure.
// Retryable reports whether the failure is transient.
type UnavailableError struct {
	ClientError
	Provider  string
	Retryable bool
}

// IsTimeout reports whether err is (or wraps) a TimeoutError.
func IsTimeout(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsRetryable reports whether the failure is safe to retry. Timeouts and
// transient provider failures are; auth and request errors are not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if IsTimeout(err) {
		return true
	}
	var ue *UnavailableError
	if errors.As(err, &ue) {
		return ue.Retryable
	}
	// Unknown errors default to retryable.
	return true
}

// translateError converts a raw gollm error into the llmclient taxonomy.
// gollm surfaces provider failures as flat errors, so classification is
// by message content, mirroring how the underlying HTTP statuses read.
func translateError(err error, provider string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{
			ClientError: ClientError{Message: "inference timed out", Cause: err},
			Provider:    provider,
		}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	retryable := true
	switch {
	case strings.Contains(lower, "401"), strings.Contains(lower, "unauthorized"),
		strings.Contains(lower, "invalid api key"), strings.Contains(lower, "invalid key"):
		retryable = false
	case strings.Contains(lower, "403"), strings.Contains(lower, "forbidden"):
		retryable = false
	case strings.Contains(lower, "404"), strings.Contains(lower, "not found"):
		retryable = false
	case strings.Contains(lower, "400"), strings.Contains(lower, "invalid request"):
		retryable = false
	case strings.Contains(lower, "context length"), strings.Contains(lower, "too many tokens"):
		retryable = false
	case strings.Contains(lower, "timeout"), strings.Contains(lower, "timed out"):
		return &TimeoutError{
			ClientError: ClientError{Message: msg, Cause: err},
			Provider:    provider,
		}
	}

	return &UnavailableError{
		ClientError: ClientError{Message: msg, Cause: err},
		Provider:    provider,
		Retryable:   retryable,
	}
}
