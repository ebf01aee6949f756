package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
	"github.com/vietddude/sentinel/internal/metrics"
)

var (
	// ErrStrategyExhausted reports that every candidate failed or none
	// applied. The orchestration layer turns this into an escalation.
	ErrStrategyExhausted = errors.New("no applicable strategy succeeded")

	// ErrRollbackFailed wraps a failed rollback. Rollbacks are never
	// retried automatically.
	ErrRollbackFailed = errors.New("rollback failed")
)

// Options gates a single resolve call.
type Options struct {
	DryRun              bool
	ConfidenceThreshold float64
	AllowedSafetyLevels []domain.SafetyLevel
	StrategyTimeout     time.Duration
}

// Engine executes catalog strategies for classified events.
type Engine struct {
	catalog *Catalog
	log     *slog.Logger
}

// NewEngine creates an Engine over a sealed catalog.
func NewEngine(catalog *Catalog, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{catalog: catalog, log: logger}
}

// Resolve selects candidate strategies and executes them in order until
// one succeeds. Absence of a working strategy is an expected outcome and
// is returned as an unsuccessful result, not an error; the error return
// carries ErrStrategyExhausted so callers can drive escalation.
func (e *Engine) Resolve(ctx context.Context, event *domain.ErrorEvent, cl domain.Classification, opts Options) (*domain.StrategyResult, error) {
	if opts.StrategyTimeout <= 0 {
		opts.StrategyTimeout = 30 * time.Second
	}

	candidates := e.candidates(event, cl, opts)
	if len(candidates) == 0 {
		return &domain.StrategyResult{
			Success: false,
			Message: "no applicable strategy",
			DryRun:  opts.DryRun,
		}, ErrStrategyExhausted
	}

	var lastResult *domain.StrategyResult
	for _, s := range candidates {
		result, err := e.executeOne(ctx, s, event, cl, opts)
		if err != nil {
			e.log.Warn("strategy execution failed",
				"strategy", s.Name(),
				"fingerprint", event.Fingerprint,
				"error", err)
			metrics.ResolutionAttempts.WithLabelValues(s.Name(), "error").Inc()
			lastResult = &domain.StrategyResult{
				Success:  false,
				Strategy: s.Name(),
				Message:  err.Error(),
				DryRun:   opts.DryRun,
			}
			continue
		}
		metrics.ResolutionLatency.WithLabelValues(s.Name()).Observe(result.ExecutionTime.Seconds())
		if result.Success {
			metrics.ResolutionAttempts.WithLabelValues(s.Name(), "success").Inc()
			return result, nil
		}
		metrics.ResolutionAttempts.WithLabelValues(s.Name(), "failure").Inc()
		lastResult = result
	}

	if lastResult == nil {
		lastResult = &domain.StrategyResult{Success: false, Message: "no applicable strategy", DryRun: opts.DryRun}
	}
	return lastResult, ErrStrategyExhausted
}

// candidates filters applicable strategies by confidence threshold and
// allowed safety levels. Unsafe strategies are never selected in
// production regardless of configuration; this gate belongs to the
// engine, not the individual strategy.
func (e *Engine) candidates(event *domain.ErrorEvent, cl domain.Classification, opts Options) []Strategy {
	allowed := make(map[domain.SafetyLevel]bool, len(opts.AllowedSafetyLevels))
	for _, l := range opts.AllowedSafetyLevels {
		allowed[l] = true
	}
	if event.IsProduction() {
		delete(allowed, domain.SafetyUnsafe)
	}

	var out []Strategy
	for _, s := range e.catalog.ApplicableStrategies(event, cl) {
		if s.Confidence() < opts.ConfidenceThreshold {
			continue
		}
		if !allowed[s.SafetyLevel()] {
			continue
		}
		out = append(out, s)
	}
	return out
}

// executeOne runs a single strategy under its bounded timeout, converting
// panics and timeouts into errors so one bad strategy cannot take down
// the loop.
func (e *Engine) executeOne(ctx context.Context, s Strategy, event *domain.ErrorEvent, cl domain.Classification, opts Options) (*domain.StrategyResult, error) {
	execCtx, cancel := context.WithTimeout(ctx, opts.StrategyTimeout)
	defer cancel()

	type outcome struct {
		result *domain.StrategyResult
		err    error
	}
	done := make(chan outcome, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome{err: fmt.Errorf("strategy %s panicked: %v", s.Name(), r)}
			}
		}()
		start := time.Now()
		result, err := s.Execute(execCtx, event, cl, opts.DryRun)
		if result != nil {
			result.Strategy = s.Name()
			result.ExecutionTime = time.Since(start)
			result.DryRun = opts.DryRun
		}
		done <- outcome{result: result, err: err}
	}()

	select {
	case <-execCtx.Done():
		return nil, fmt.Errorf("strategy %s timed out after %s: %w", s.Name(), opts.StrategyTimeout, execCtx.Err())
	case o := <-done:
		return o.result, o.err
	}
}

// Rollback undoes a previous successful execution. Failures are surfaced
// verbatim and never retried here.
func (e *Engine) Rollback(ctx context.Context, strategyName string, info map[string]string) error {
	s, err := e.catalog.ByName(strategyName)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRollbackFailed, err)
	}
	if err := s.Rollback(ctx, info); err != nil {
		return fmt.Errorf("%w: strategy %s: %v", ErrRollbackFailed, strategyName, err)
	}
	return nil
}
