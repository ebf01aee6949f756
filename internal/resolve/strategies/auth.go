package strategies

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// TokenSource is the action adapter for auth remediation.
type TokenSource interface {
	// Valid reports whether the current token is still usable.
	Valid(ctx context.Context) (bool, error)

	// Refresh obtains a fresh token and returns its expiry.
	Refresh(ctx context.Context) (time.Time, error)
}

// HTTPTokenSource refreshes a bearer token against a refresh endpoint.
type HTTPTokenSource struct {
	RefreshURL string
	Client     *http.Client

	token  string
	expiry time.Time
}

func (t *HTTPTokenSource) Valid(ctx context.Context) (bool, error) {
	return t.token != "" && time.Now().Before(t.expiry), nil
}

func (t *HTTPTokenSource) Refresh(ctx context.Context) (time.Time, error) {
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.RefreshURL, strings.NewReader("{}"))
	if err != nil {
		return time.Time{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("token refresh request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("token refresh returned %d", resp.StatusCode)
	}

	var body struct {
		Token     string `json:"token"`
		ExpiresIn int    `json:"expires_in"` // seconds
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return time.Time{}, fmt.Errorf("decode refresh response: %w", err)
	}

	t.token = body.Token
	t.expiry = time.Now().Add(time.Duration(body.ExpiresIn) * time.Second)
	return t.expiry, nil
}

// Token returns the current bearer token.
func (t *HTTPTokenSource) Token() string { return t.token }

// AuthTokenStrategy refreshes expired credentials. Refreshing an already
// valid token is skipped so repeated executions stay idempotent.
type AuthTokenStrategy struct {
	meta
	tokens TokenSource
}

func NewAuthTokenStrategy(tokens TokenSource) *AuthTokenStrategy {
	return &AuthTokenStrategy{
		meta:   meta{name: "auth_token_refresh", confidence: 0.9, safety: domain.SafetySafe, complexity: 1},
		tokens: tokens,
	}
}

func (s *AuthTokenStrategy) Validate(event *domain.ErrorEvent, cl domain.Classification) bool {
	return cl.Category == domain.CategoryAuth
}

func (s *AuthTokenStrategy) Execute(ctx context.Context, event *domain.ErrorEvent, cl domain.Classification, dryRun bool) (*domain.StrategyResult, error) {
	actions := []string{
		"check current token validity",
		"refresh access token",
	}
	if dryRun {
		return &domain.StrategyResult{Success: true, Message: "planned token refresh", ActionsTaken: actions}, nil
	}

	valid, err := s.tokens.Valid(ctx)
	if err != nil {
		return nil, fmt.Errorf("token validity check: %w", err)
	}
	if valid {
		return &domain.StrategyResult{
			Success:      true,
			Message:      "token already valid, no refresh needed",
			ActionsTaken: actions[:1],
		}, nil
	}

	expiry, err := s.tokens.Refresh(ctx)
	if err != nil {
		return &domain.StrategyResult{
			Success:      false,
			Message:      fmt.Sprintf("token refresh failed: %v", err),
			ActionsTaken: actions,
		}, nil
	}

	return &domain.StrategyResult{
		Success:      true,
		Message:      fmt.Sprintf("token refreshed, valid until %s", expiry.Format(time.RFC3339)),
		ActionsTaken: actions,
	}, nil
}

func (s *AuthTokenStrategy) Rollback(ctx context.Context, info map[string]string) error {
	// A refreshed token supersedes the old one; nothing to undo.
	return nil
}
