package domain

import "time"

// NotificationKind distinguishes the reason a notification goes out.
type NotificationKind string

const (
	NotifyAlert             NotificationKind = "alert"
	NotifyResolutionSuccess NotificationKind = "resolution_success"
	NotifyResolutionFailure NotificationKind = "resolution_failure"
	NotifyEscalation        NotificationKind = "escalation"
)

// Severity of an outgoing notification.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// Notification is an outgoing alert/resolution/escalation message intent.
type Notification struct {
	ID          string            `json:"id"`
	Kind        NotificationKind  `json:"kind"`
	Severity    Severity          `json:"severity"`
	Fingerprint string            `json:"fingerprint"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Payload     map[string]string `json:"payload,omitempty"`
	// Attempts counts failed deliveries so far. It rides along through
	// the pending queue so the retry bound survives a round trip.
	Attempts  int       `json:"attempts,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
