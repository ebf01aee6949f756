package domain

import "time"

// ErrorEvent represents a single error signal received from telemetry.
// Events are immutable; a recurrence of the same fault arrives as a new
// event with the same fingerprint and an updated Count/LastSeen.
type ErrorEvent struct {
	Fingerprint string            `json:"fingerprint" yaml:"fingerprint"`
	Message     string            `json:"message" yaml:"message"`
	Level       ErrorLevel        `json:"level" yaml:"level"`
	Environment string            `json:"environment" yaml:"environment"`
	Count       int               `json:"count" yaml:"count"`
	FirstSeen   time.Time         `json:"first_seen" yaml:"first_seen"`
	LastSeen    time.Time         `json:"last_seen" yaml:"last_seen"`
	Tags        map[string]string `json:"tags,omitempty" yaml:"tags,omitempty"`
	Context     map[string]string `json:"context,omitempty" yaml:"context,omitempty"`
}

type ErrorLevel string

const (
	LevelDebug   ErrorLevel = "debug"
	LevelInfo    ErrorLevel = "info"
	LevelWarning ErrorLevel = "warning"
	LevelError   ErrorLevel = "error"
	LevelFatal   ErrorLevel = "fatal"
)

// IsProduction reports whether the event originated in production.
func (e *ErrorEvent) IsProduction() bool {
	return e.Environment == "production"
}

// IsCritical reports whether the recurrence count crossed the configured
// critical threshold.
func (e *ErrorEvent) IsCritical(criticalCountThreshold int) bool {
	return criticalCountThreshold > 0 && e.Count >= criticalCountThreshold
}
