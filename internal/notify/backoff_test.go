package notify

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestExponentialBackoff_GetDelay(t *testing.T) {
	s := DefaultBackoff(nil)

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 2 * time.Second},
		{1, 4 * time.Second},
		{2, 8 * time.Second},
		{3, 16 * time.Second},
		{4, 32 * time.Second},
		{5, 60 * time.Second}, // capped
		{10, 60 * time.Second},
	}
	for _, tt := range tests {
		if got := s.GetDelay(tt.attempt); got != tt.want {
			t.Errorf("attempt %d: got %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

func TestExponentialBackoff_ShouldRetry(t *testing.T) {
	s := DefaultBackoff(nil)
	transient := errors.New("connection refused")

	if !s.ShouldRetry(transient, 0) {
		t.Error("transient error on first attempt should retry")
	}
	if s.ShouldRetry(transient, 5) {
		t.Error("must stop at max attempts")
	}
}

func TestClassifyDeliveryError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want FailureCategory
	}{
		{"bad request", &HTTPStatusError{StatusCode: 400}, CategoryPermanent},
		{"not found", &HTTPStatusError{StatusCode: 404}, CategoryPermanent},
		{"rate limited", &HTTPStatusError{StatusCode: 429}, CategoryPermanent},
		{"server error", &HTTPStatusError{StatusCode: 503}, CategoryTransient},
		{"network fault", errors.New("dial tcp: connection refused"), CategoryTransient},
		{"wrapped status", fmt.Errorf("send: %w", &HTTPStatusError{StatusCode: 403}), CategoryPermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyDeliveryError(tt.err); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestShouldRetry_PermanentFailureNeverRetries(t *testing.T) {
	s := DefaultBackoff(nil)
	if s.ShouldRetry(&HTTPStatusError{StatusCode: 404}, 0) {
		t.Error("4xx must never be retried")
	}
}
