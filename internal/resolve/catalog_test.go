package resolve

import (
	"context"
	"errors"
	"testing"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// ============================================================
// Test Doubles
// ============================================================

type fakeStrategy struct {
	name       string
	confidence float64
	safety     domain.SafetyLevel
	complexity int
	applies    bool

	executed    int
	sideEffects int
	succeed     bool
	execErr     error
	execPanic   bool
	block       chan struct{}

	rolledBack  int
	rollbackErr error
}

func (s *fakeStrategy) Name() string                    { return s.name }
func (s *fakeStrategy) Confidence() float64             { return s.confidence }
func (s *fakeStrategy) SafetyLevel() domain.SafetyLevel { return s.safety }
func (s *fakeStrategy) Complexity() int                 { return s.complexity }

func (s *fakeStrategy) Validate(event *domain.ErrorEvent, cl domain.Classification) bool {
	return s.applies
}

func (s *fakeStrategy) Execute(ctx context.Context, event *domain.ErrorEvent, cl domain.Classification, dryRun bool) (*domain.StrategyResult, error) {
	s.executed++
	if s.execPanic {
		panic("boom")
	}
	if s.block != nil {
		select {
		case <-s.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if s.execErr != nil {
		return nil, s.execErr
	}
	if !dryRun {
		s.sideEffects++
	}
	actions := []string{"inspected " + s.name, "applied " + s.name}
	return &domain.StrategyResult{
		Success:      s.succeed,
		Message:      s.name + " done",
		ActionsTaken: actions,
	}, nil
}

func (s *fakeStrategy) Rollback(ctx context.Context, info map[string]string) error {
	s.rolledBack++
	return s.rollbackErr
}

func safeStrategy(name string, confidence float64, complexity int) *fakeStrategy {
	return &fakeStrategy{
		name:       name,
		confidence: confidence,
		safety:     domain.SafetySafe,
		complexity: complexity,
		applies:    true,
		succeed:    true,
	}
}

// ============================================================
// Catalog
// ============================================================

func TestCatalog_RegisterAndByName(t *testing.T) {
	c := NewCatalog()
	s := safeStrategy("cache_flush", 0.7, 1)

	if err := c.Register(s); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if c.Len() != 1 {
		t.Errorf("expected 1 strategy, got %d", c.Len())
	}

	got, err := c.ByName("cache_flush")
	if err != nil {
		t.Fatalf("ByName failed: %v", err)
	}
	if got != s {
		t.Error("ByName returned a different strategy")
	}

	if _, err := c.ByName("missing"); !errors.Is(err, ErrStrategyNotFound) {
		t.Errorf("expected ErrStrategyNotFound, got %v", err)
	}
}

func TestCatalog_RejectsDuplicates(t *testing.T) {
	c := NewCatalog()
	if err := c.Register(safeStrategy("dup", 0.5, 1)); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}
	if err := c.Register(safeStrategy("dup", 0.6, 1)); err == nil {
		t.Fatal("expected duplicate registration to fail")
	}
}

func TestCatalog_RejectsAfterSeal(t *testing.T) {
	c := NewCatalog()
	c.Seal()
	if err := c.Register(safeStrategy("late", 0.5, 1)); err == nil {
		t.Fatal("expected registration after Seal to fail")
	}
}

func TestCatalog_RejectsConfidenceOutOfRange(t *testing.T) {
	c := NewCatalog()
	if err := c.Register(safeStrategy("hot", 1.2, 1)); err == nil {
		t.Fatal("expected confidence > 1 to be rejected")
	}
}

func TestCatalog_DeterministicOrdering(t *testing.T) {
	c := NewCatalog()
	// Registered out of order on purpose.
	for _, s := range []*fakeStrategy{
		safeStrategy("bravo", 0.8, 2),
		safeStrategy("delta", 0.9, 1),
		safeStrategy("charlie", 0.8, 1),
		safeStrategy("alpha", 0.8, 2),
	} {
		if err := c.Register(s); err != nil {
			t.Fatalf("Register %s failed: %v", s.name, err)
		}
	}

	ev := &domain.ErrorEvent{Fingerprint: "fp", Message: "x"}
	got := c.ApplicableStrategies(ev, domain.Classification{})

	want := []string{"delta", "charlie", "alpha", "bravo"}
	if len(got) != len(want) {
		t.Fatalf("expected %d strategies, got %d", len(want), len(got))
	}
	for i, name := range want {
		if got[i].Name() != name {
			t.Errorf("position %d: expected %s, got %s", i, name, got[i].Name())
		}
	}
}

func TestCatalog_SkipsNonApplicable(t *testing.T) {
	c := NewCatalog()
	applicable := safeStrategy("yes", 0.5, 1)
	notApplicable := safeStrategy("no", 0.9, 1)
	notApplicable.applies = false

	_ = c.Register(applicable)
	_ = c.Register(notApplicable)

	got := c.ApplicableStrategies(&domain.ErrorEvent{}, domain.Classification{})
	if len(got) != 1 || got[0].Name() != "yes" {
		t.Errorf("expected only the applicable strategy, got %v", got)
	}
}
