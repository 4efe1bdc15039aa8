package llmclient

import (
	"context"
	"errors"
	"testing"
)

func TestTranslateErrorTimeout(t *testing.T) {
	err := translateError(context.DeadlineExceeded, "anthropic")
	te, ok := err.(*TimeoutError)
	if !ok {
		t.Fatalf("expected *TimeoutError, got %T", err)
	}
	if te.Provider != "anthropic" {
		t.Errorf("expected provider %q, got %q", "anthropic", te.Provider)
	}
	if !IsTimeout(err) {
		t.Error("IsTimeout should report true")
	}
	if !IsRetryable(err) {
		t.Error("timeouts should be retryable")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Error("should unwrap to the deadline error")
	}
}

func TestTranslateErrorClassification(t *testing.T) {
	tests := []struct {
		msg       string
		retryable bool
	}{
		{"401 Unauthorized", false},
		{"invalid api key provided", false},
		{"403 Forbidden", false},
		{"404 model not found", false},
		{"400 invalid request body", false},
		{"context length exceeded", false},
		{"429 rate limit exceeded", true},
		{"500 internal server error", true},
		{"connection reset by peer", true},
	}

	for _, tt := range tests {
		err := translateError(errors.New(tt.msg), "openai")
		ue, ok := err.(*UnavailableError)
		if !ok {
			t.Errorf("for %q: expected *UnavailableError, got %T", tt.msg, err)
			continue
		}
		if ue.Retryable != tt.retryable {
			t.Errorf("for %q: expected retryable=%v, got %v", tt.msg, tt.retryable, ue.Retryable)
		}
		if IsRetryable(err) != tt.retryable {
			t.Errorf("for %q: IsRetryable disagrees with classification", tt.msg)
		}
	}
}

func TestTranslateErrorTimeoutByMessage(t *testing.T) {
	err := translateError(errors.New("request timed out after 30s"), "openai")
	if _, ok := err.(*TimeoutError); !ok {
		t.Fatalf("expected *TimeoutError, got %T", err)
	}
}

func TestTranslateErrorNil(t *testing.T) {
	if err := translateError(nil, "openai"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
}

func TestIsRetryableUnknownError(t *testing.T) {
	if !IsRetryable(errors.New("some unclassified failure")) {
		t.Error("unknown errors should default to retryable")
	}
	if IsRetryable(nil) {
		t.Error("nil is not retryable")
	}
}
