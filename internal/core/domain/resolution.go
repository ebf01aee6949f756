package domain

import "time"

// SafetyLevel is a strategy's blast-radius category. It gates automatic
// execution by environment: unsafe strategies are never run automatically
// in production.
type SafetyLevel string

const (
	SafetySafe   SafetyLevel = "safe"
	SafetyMedium SafetyLevel = "medium"
	SafetyUnsafe SafetyLevel = "unsafe"
)

// StrategyResult is the outcome of one strategy execution.
// RollbackInfo is populated only on success when the action is reversible.
type StrategyResult struct {
	Success       bool              `json:"success"`
	Strategy      string            `json:"strategy"`
	Message       string            `json:"message"`
	ActionsTaken  []string          `json:"actions_taken"`
	ExecutionTime time.Duration     `json:"execution_time"`
	RollbackInfo  map[string]string `json:"rollback_info,omitempty"`
	DryRun        bool              `json:"dry_run,omitempty"`
}

// ResolutionAttempt is the persisted audit record of one engine run.
type ResolutionAttempt struct {
	ID           string        `json:"id"`
	Fingerprint  string        `json:"fingerprint"`
	Strategy     string        `json:"strategy"`
	Success      bool          `json:"success"`
	Message      string        `json:"message"`
	ActionsTaken []string      `json:"actions_taken"`
	Duration     time.Duration `json:"duration"`
	DryRun       bool          `json:"dry_run"`
	CreatedAt    time.Time     `json:"created_at"`
}
