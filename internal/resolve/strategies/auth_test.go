package strategies

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
)

type fakeTokens struct {
	valid      bool
	refreshed  int
	refreshErr error
}

func (f *fakeTokens) Valid(ctx context.Context) (bool, error) { return f.valid, nil }

func (f *fakeTokens) Refresh(ctx context.Context) (time.Time, error) {
	f.refreshed++
	if f.refreshErr != nil {
		return time.Time{}, f.refreshErr
	}
	f.valid = true
	return time.Now().Add(time.Hour), nil
}

func TestAuthTokenStrategy_RefreshesExpiredToken(t *testing.T) {
	tokens := &fakeTokens{valid: false}
	s := NewAuthTokenStrategy(tokens)

	result, err := s.Execute(context.Background(), event("token expired"), classified(domain.CategoryAuth), false)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %+v", result)
	}
	if tokens.refreshed != 1 {
		t.Errorf("expected one refresh, got %d", tokens.refreshed)
	}
}

func TestAuthTokenStrategy_SkipsValidToken(t *testing.T) {
	tokens := &fakeTokens{valid: true}
	s := NewAuthTokenStrategy(tokens)

	// Repeated executions against a valid token stay no-ops.
	for i := 0; i < 3; i++ {
		result, err := s.Execute(context.Background(), event("401 unauthorized"), classified(domain.CategoryAuth), false)
		if err != nil {
			t.Fatalf("Execute %d failed: %v", i, err)
		}
		if !result.Success {
			t.Fatalf("expected success, got %+v", result)
		}
	}
	if tokens.refreshed != 0 {
		t.Errorf("valid token must not be refreshed, got %d refreshes", tokens.refreshed)
	}
}

func TestAuthTokenStrategy_RefreshFailureIsNotFatal(t *testing.T) {
	tokens := &fakeTokens{valid: false, refreshErr: errors.New("refresh endpoint down")}
	s := NewAuthTokenStrategy(tokens)

	result, err := s.Execute(context.Background(), event("authentication failed"), classified(domain.CategoryAuth), false)
	if err != nil {
		t.Fatalf("refresh failure should yield a result, not an error: %v", err)
	}
	if result.Success {
		t.Error("failed refresh cannot be a success")
	}
}

func TestAuthTokenStrategy_DryRunNeverRefreshes(t *testing.T) {
	tokens := &fakeTokens{valid: false}
	s := NewAuthTokenStrategy(tokens)

	if _, err := s.Execute(context.Background(), event("token expired"), classified(domain.CategoryAuth), true); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if tokens.refreshed != 0 {
		t.Error("dry run must not refresh tokens")
	}
}
