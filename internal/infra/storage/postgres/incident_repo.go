package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
	"github.com/vietddude/sentinel/internal/infra/storage"
)

// IncidentRepo implements storage.IncidentRepository using PostgreSQL.
type IncidentRepo struct {
	db *DB
}

// NewIncidentRepo creates a new PostgreSQL incident repository.
func NewIncidentRepo(db *DB) *IncidentRepo {
	return &IncidentRepo{db: db}
}

// Save inserts or updates the incident for a fingerprint.
func (r *IncidentRepo) Save(ctx context.Context, inc *domain.Incident) error {
	query := `
		INSERT INTO incidents (fingerprint, state, last_notified_at, last_resolution_attempt_at,
			escalation_level, resolution_attempts, last_resolved_by, first_seen, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (fingerprint) DO UPDATE SET
			state = EXCLUDED.state,
			last_notified_at = EXCLUDED.last_notified_at,
			last_resolution_attempt_at = EXCLUDED.last_resolution_attempt_at,
			escalation_level = EXCLUDED.escalation_level,
			resolution_attempts = EXCLUDED.resolution_attempts,
			last_resolved_by = EXCLUDED.last_resolved_by,
			updated_at = EXCLUDED.updated_at
	`
	// updated_at carries the event's LastSeen, not wall-clock time: the
	// terminal-incident dedup compares incoming LastSeen against it, so a
	// server-side NOW() would swallow recurrences that lag the save.
	_, err := r.db.ExecContext(ctx, query,
		inc.Fingerprint,
		string(inc.State),
		nullTime(inc.LastNotifiedAt),
		nullTime(inc.LastResolutionAttempt),
		inc.EscalationLevel,
		inc.ResolutionAttempts,
		inc.LastResolvedBy,
		inc.FirstSeen,
		inc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save incident: %w", err)
	}
	return nil
}

// Get retrieves the incident for a fingerprint.
func (r *IncidentRepo) Get(ctx context.Context, fingerprint string) (*domain.Incident, error) {
	query := `
		SELECT fingerprint, state, last_notified_at, last_resolution_attempt_at,
			escalation_level, resolution_attempts, last_resolved_by, first_seen, updated_at
		FROM incidents
		WHERE fingerprint = $1
	`
	inc, err := scanIncident(r.db.QueryRowContext(ctx, query, fingerprint))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrIncidentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get incident: %w", err)
	}
	return inc, nil
}

// ListOpen retrieves incidents not in a terminal state.
func (r *IncidentRepo) ListOpen(ctx context.Context) ([]*domain.Incident, error) {
	query := `
		SELECT fingerprint, state, last_notified_at, last_resolution_attempt_at,
			escalation_level, resolution_attempts, last_resolved_by, first_seen, updated_at
		FROM incidents
		WHERE state NOT IN ('resolved', 'escalated')
		ORDER BY updated_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list open incidents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident: %w", err)
		}
		out = append(out, inc)
	}
	return out, rows.Err()
}

// CountOpen returns the number of non-terminal incidents.
func (r *IncidentRepo) CountOpen(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM incidents WHERE state NOT IN ('resolved', 'escalated')`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count open incidents: %w", err)
	}
	return count, nil
}

// DeleteTerminalOlderThan garbage-collects terminal incidents past retention.
func (r *IncidentRepo) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM incidents WHERE state IN ('resolved', 'escalated') AND updated_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to prune incidents: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncident(row rowScanner) (*domain.Incident, error) {
	var inc domain.Incident
	var state string
	var notified, attempted sql.NullTime
	var resolvedBy sql.NullString
	if err := row.Scan(
		&inc.Fingerprint, &state, &notified, &attempted,
		&inc.EscalationLevel, &inc.ResolutionAttempts, &resolvedBy,
		&inc.FirstSeen, &inc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	inc.State = domain.IncidentState(state)
	if notified.Valid {
		inc.LastNotifiedAt = notified.Time
	}
	if attempted.Valid {
		inc.LastResolutionAttempt = attempted.Time
	}
	inc.LastResolvedBy = resolvedBy.String
	return &inc, nil
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
