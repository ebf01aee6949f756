package strategies

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// RateController is the action adapter for throttling remediation.
type RateController interface {
	Current() time.Duration
	Set(interval time.Duration) error
}

// IntervalController is a process-local RateController guarding the pace
// of outbound API calls.
type IntervalController struct {
	mu       sync.Mutex
	interval time.Duration
	ceiling  time.Duration
}

// NewIntervalController creates a controller starting at initial, never
// throttling beyond ceiling.
func NewIntervalController(initial, ceiling time.Duration) *IntervalController {
	return &IntervalController{interval: initial, ceiling: ceiling}
}

func (c *IntervalController) Current() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.interval
}

func (c *IntervalController) Set(interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("interval must be positive, got %s", interval)
	}
	if c.ceiling > 0 && interval > c.ceiling {
		interval = c.ceiling
	}
	c.mu.Lock()
	c.interval = interval
	c.mu.Unlock()
	return nil
}

// APIRateLimitStrategy backs off the outbound request pace when the
// upstream throttles us. Reversible: the previous interval is saved.
type APIRateLimitStrategy struct {
	meta
	rate    RateController
	factor  int // multiplier applied to the current interval
	ceiling time.Duration
}

func NewAPIRateLimitStrategy(rate RateController) *APIRateLimitStrategy {
	return &APIRateLimitStrategy{
		meta:    meta{name: "api_rate_limit", confidence: 0.8, safety: domain.SafetySafe, complexity: 1},
		rate:    rate,
		factor:  2,
		ceiling: 5 * time.Minute,
	}
}

func (s *APIRateLimitStrategy) Validate(event *domain.ErrorEvent, cl domain.Classification) bool {
	return cl.Category == domain.CategoryRateLimit
}

func (s *APIRateLimitStrategy) Execute(ctx context.Context, event *domain.ErrorEvent, cl domain.Classification, dryRun bool) (*domain.StrategyResult, error) {
	current := s.rate.Current()
	target := current * time.Duration(s.factor)
	if target > s.ceiling {
		target = s.ceiling
	}

	actions := []string{
		fmt.Sprintf("reduce request rate: interval %s -> %s", current, target),
	}
	if dryRun {
		return &domain.StrategyResult{Success: true, Message: "planned rate reduction", ActionsTaken: actions}, nil
	}

	// Already backed off to the ceiling; applying again would be a no-op.
	if current >= s.ceiling {
		return &domain.StrategyResult{
			Success:      true,
			Message:      "request interval already at ceiling",
			ActionsTaken: actions,
		}, nil
	}

	if err := s.rate.Set(target); err != nil {
		return nil, fmt.Errorf("set interval: %w", err)
	}

	return &domain.StrategyResult{
		Success:      true,
		Message:      fmt.Sprintf("request interval raised to %s", target),
		ActionsTaken: actions,
		RollbackInfo: map[string]string{"previous_interval": current.String()},
	}, nil
}

func (s *APIRateLimitStrategy) Rollback(ctx context.Context, info map[string]string) error {
	prev, err := time.ParseDuration(info["previous_interval"])
	if err != nil {
		return fmt.Errorf("invalid rollback info %q: %w", info["previous_interval"], err)
	}
	return s.rate.Set(prev)
}
