package strategies

import (
	"context"
	"fmt"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// ContentPipeline is the action adapter for content/QA remediation: it can
// re-run validation on an artifact and regenerate it when invalid.
type ContentPipeline interface {
	Validate(ctx context.Context, artifact string) error
	Regenerate(ctx context.Context, artifact string) error
}

// ContentValidationStrategy regenerates an artifact that failed QA checks
// and re-validates the result.
type ContentValidationStrategy struct {
	meta
	pipeline ContentPipeline
}

func NewContentValidationStrategy(pipeline ContentPipeline) *ContentValidationStrategy {
	return &ContentValidationStrategy{
		meta:     meta{name: "content_revalidation", confidence: 0.65, safety: domain.SafetyMedium, complexity: 3},
		pipeline: pipeline,
	}
}

func (s *ContentValidationStrategy) artifactFor(event *domain.ErrorEvent) string {
	if a := event.Context["artifact"]; a != "" {
		return a
	}
	return event.Tags["artifact"]
}

func (s *ContentValidationStrategy) Validate(event *domain.ErrorEvent, cl domain.Classification) bool {
	return cl.Category == domain.CategoryContent && s.artifactFor(event) != ""
}

func (s *ContentValidationStrategy) Execute(ctx context.Context, event *domain.ErrorEvent, cl domain.Classification, dryRun bool) (*domain.StrategyResult, error) {
	artifact := s.artifactFor(event)
	actions := []string{
		fmt.Sprintf("re-validate artifact %s", artifact),
		fmt.Sprintf("regenerate artifact %s if still invalid", artifact),
	}
	if dryRun {
		return &domain.StrategyResult{Success: true, Message: "planned content revalidation", ActionsTaken: actions}, nil
	}

	// The artifact may have been fixed since the event fired; validating
	// first keeps regeneration idempotent.
	if err := s.pipeline.Validate(ctx, artifact); err == nil {
		return &domain.StrategyResult{
			Success:      true,
			Message:      fmt.Sprintf("artifact %s now passes validation", artifact),
			ActionsTaken: actions[:1],
		}, nil
	}

	if err := s.pipeline.Regenerate(ctx, artifact); err != nil {
		return &domain.StrategyResult{
			Success:      false,
			Message:      fmt.Sprintf("regeneration failed: %v", err),
			ActionsTaken: actions,
		}, nil
	}
	if err := s.pipeline.Validate(ctx, artifact); err != nil {
		return &domain.StrategyResult{
			Success:      false,
			Message:      fmt.Sprintf("artifact %s still invalid after regeneration: %v", artifact, err),
			ActionsTaken: actions,
		}, nil
	}

	return &domain.StrategyResult{
		Success:      true,
		Message:      fmt.Sprintf("artifact %s regenerated and validated", artifact),
		ActionsTaken: actions,
	}, nil
}

func (s *ContentValidationStrategy) Rollback(ctx context.Context, info map[string]string) error {
	// Regeneration replaces the artifact in place; prior bytes are gone.
	return fmt.Errorf("regenerated artifact cannot be restored")
}
