package strategies

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/sentinel/internal/core/domain"
)

type fakePipeline struct {
	invalid     bool
	regenErr    error
	validated   int
	regenerated int
}

func (p *fakePipeline) Validate(_ context.Context, _ string) error {
	p.validated++
	if p.invalid {
		return errors.New("schema mismatch")
	}
	return nil
}

func (p *fakePipeline) Regenerate(_ context.Context, _ string) error {
	p.regenerated++
	if p.regenErr != nil {
		return p.regenErr
	}
	p.invalid = false
	return nil
}

func contentEvent() *domain.ErrorEvent {
	ev := event("validation failed for artifact")
	ev.Tags = map[string]string{"artifact": "report-2024.json"}
	return ev
}

func TestContentValidationStrategy_RequiresArtifact(t *testing.T) {
	s := NewContentValidationStrategy(&fakePipeline{})

	if s.Validate(event("validation failed"), classified(domain.CategoryContent)) {
		t.Error("strategy must not apply without an artifact reference")
	}
	if !s.Validate(contentEvent(), classified(domain.CategoryContent)) {
		t.Error("strategy should apply to content events naming an artifact")
	}
	if s.Validate(contentEvent(), classified(domain.CategoryDatabase)) {
		t.Error("strategy must not apply outside the content category")
	}
}

func TestContentValidationStrategy_RegeneratesInvalidArtifact(t *testing.T) {
	pipeline := &fakePipeline{invalid: true}
	s := NewContentValidationStrategy(pipeline)

	result, err := s.Execute(context.Background(), contentEvent(), classified(domain.CategoryContent), false)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	if pipeline.regenerated != 1 {
		t.Errorf("regenerated %d times, want 1", pipeline.regenerated)
	}
	// Validated once before regeneration and once after.
	if pipeline.validated != 2 {
		t.Errorf("validated %d times, want 2", pipeline.validated)
	}
	if len(result.ActionsTaken) != 2 {
		t.Errorf("ActionsTaken = %v, want validate plus regenerate", result.ActionsTaken)
	}
}

func TestContentValidationStrategy_SkipsRegenerationWhenFixed(t *testing.T) {
	pipeline := &fakePipeline{}
	s := NewContentValidationStrategy(pipeline)

	result, err := s.Execute(context.Background(), contentEvent(), classified(domain.CategoryContent), false)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Message)
	}
	if pipeline.regenerated != 0 {
		t.Errorf("regenerated %d times, want 0 for an already-valid artifact", pipeline.regenerated)
	}
	if len(result.ActionsTaken) != 1 {
		t.Errorf("ActionsTaken = %v, want the validation step only", result.ActionsTaken)
	}
}

func TestContentValidationStrategy_ReportsRegenerationFailure(t *testing.T) {
	pipeline := &fakePipeline{invalid: true, regenErr: errors.New("generator offline")}
	s := NewContentValidationStrategy(pipeline)

	result, err := s.Execute(context.Background(), contentEvent(), classified(domain.CategoryContent), false)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.Success {
		t.Error("a failed regeneration must not report success")
	}
}

func TestContentValidationStrategy_DryRunTouchesNothing(t *testing.T) {
	pipeline := &fakePipeline{invalid: true}
	s := NewContentValidationStrategy(pipeline)

	result, err := s.Execute(context.Background(), contentEvent(), classified(domain.CategoryContent), true)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !result.Success {
		t.Fatalf("dry run should succeed, got %q", result.Message)
	}
	if pipeline.validated != 0 || pipeline.regenerated != 0 {
		t.Errorf("dry run touched the pipeline: validated=%d regenerated=%d",
			pipeline.validated, pipeline.regenerated)
	}
	if s.Rollback(context.Background(), nil) == nil {
		t.Error("regeneration is not reversible and rollback must say so")
	}
}
