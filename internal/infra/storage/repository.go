package storage

import (
	"context"
	"errors"
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
)

var (
	// ErrIncidentNotFound is returned when no incident exists for a fingerprint
	ErrIncidentNotFound = errors.New("incident not found")
)

// IncidentRepository persists per-fingerprint incident state
type IncidentRepository interface {
	// Save inserts or updates an incident
	Save(ctx context.Context, incident *domain.Incident) error

	// Get retrieves an incident by fingerprint
	Get(ctx context.Context, fingerprint string) (*domain.Incident, error)

	// ListOpen retrieves incidents not in a terminal state
	ListOpen(ctx context.Context) ([]*domain.Incident, error)

	// CountOpen returns the number of non-terminal incidents
	CountOpen(ctx context.Context) (int, error)

	// DeleteTerminalOlderThan garbage-collects terminal incidents past the
	// retention window and returns the number removed
	DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// EventRepository archives error events for trend analysis and dedup
type EventRepository interface {
	// Save archives an event occurrence
	Save(ctx context.Context, event *domain.ErrorEvent) error

	// LastSeen returns the most recent LastSeen stored for a fingerprint
	LastSeen(ctx context.Context, fingerprint string) (time.Time, error)

	// ListSince retrieves events seen after the given time
	ListSince(ctx context.Context, since time.Time) ([]*domain.ErrorEvent, error)

	// DeleteOlderThan prunes archived events past retention
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// AttemptRepository stores the resolution audit trail
type AttemptRepository interface {
	// Add appends an attempt record
	Add(ctx context.Context, attempt *domain.ResolutionAttempt) error

	// CountForFingerprint returns how many attempts were made for a fingerprint
	CountForFingerprint(ctx context.Context, fingerprint string) (int, error)

	// CountFailed returns the number of failed attempts
	CountFailed(ctx context.Context) (int, error)
}
