package domain

import "time"

// IncidentState tracks where an incident is in its lifecycle.
// Resolved and Escalated are terminal for the current occurrence; a later
// event with the same fingerprint re-opens the incident from New.
type IncidentState string

const (
	IncidentStateNew        IncidentState = "new"
	IncidentStateClassified IncidentState = "classified"
	IncidentStateNotifying  IncidentState = "notifying"
	IncidentStateResolving  IncidentState = "resolving"
	IncidentStateResolved   IncidentState = "resolved"
	IncidentStateEscalated  IncidentState = "escalated"
	IncidentStateUnresolved IncidentState = "unresolved"
)

// IsTerminal reports whether the state closes the current occurrence.
func (s IncidentState) IsTerminal() bool {
	return s == IncidentStateResolved || s == IncidentStateEscalated
}

// Incident is the mutable per-fingerprint tracking record. It is owned
// exclusively by the orchestration policy and must only be touched while
// holding the per-fingerprint lock.
type Incident struct {
	Fingerprint           string        `json:"fingerprint"`
	State                 IncidentState `json:"state"`
	LastNotifiedAt        time.Time     `json:"last_notified_at"`
	LastResolutionAttempt time.Time     `json:"last_resolution_attempt_at"`
	EscalationLevel       int           `json:"escalation_level"`
	ResolutionAttempts    int           `json:"resolution_attempts"`
	LastResolvedBy        string        `json:"last_resolved_by,omitempty"`
	FirstSeen             time.Time     `json:"first_seen"`
	UpdatedAt             time.Time     `json:"updated_at"`
}
