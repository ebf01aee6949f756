// Package resolve selects and executes remediation strategies for
// classified error events under safety and dry-run gates.
package resolve

import (
	"context"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// Strategy is one remediation capability. Validate must be a pure
// predicate over the event and classification; Execute and Rollback are
// the only side-effecting operations and must be idempotent.
type Strategy interface {
	// Name is the stable identifier of the strategy.
	Name() string

	// Confidence is the strategy's static likelihood of success in [0,1].
	Confidence() float64

	// SafetyLevel is the strategy's blast-radius category.
	SafetyLevel() domain.SafetyLevel

	// Complexity is the estimated execution complexity, used as the
	// secondary ordering key after confidence.
	Complexity() int

	// Validate reports whether the strategy applies to the event.
	Validate(event *domain.ErrorEvent, cl domain.Classification) bool

	// Execute performs the remediation. With dryRun set it must produce
	// the same ActionsTaken descriptions without applying side effects.
	Execute(ctx context.Context, event *domain.ErrorEvent, cl domain.Classification, dryRun bool) (*domain.StrategyResult, error)

	// Rollback undoes a previous successful execution using the
	// RollbackInfo it produced.
	Rollback(ctx context.Context, info map[string]string) error
}
