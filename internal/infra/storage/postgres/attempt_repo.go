package postgres

import (
	"context"
	"fmt"

	"github.com/lib/pq"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// AttemptRepo implements storage.AttemptRepository using PostgreSQL.
type AttemptRepo struct {
	db *DB
}

// NewAttemptRepo creates a new PostgreSQL attempt repository.
func NewAttemptRepo(db *DB) *AttemptRepo {
	return &AttemptRepo{db: db}
}

// Add appends a resolution-attempt audit record.
func (r *AttemptRepo) Add(ctx context.Context, a *domain.ResolutionAttempt) error {
	query := `
		INSERT INTO resolution_attempts (id, fingerprint, strategy, success, message,
			actions_taken, duration_ms, dry_run, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.Fingerprint, a.Strategy, a.Success, a.Message,
		pq.Array(a.ActionsTaken), a.Duration.Milliseconds(), a.DryRun, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add resolution attempt: %w", err)
	}
	return nil
}

// CountForFingerprint returns how many attempts were recorded for a fingerprint.
func (r *AttemptRepo) CountForFingerprint(ctx context.Context, fingerprint string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM resolution_attempts WHERE fingerprint = $1`,
		fingerprint,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count attempts: %w", err)
	}
	return count, nil
}

// CountFailed returns the number of failed attempts.
func (r *AttemptRepo) CountFailed(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM resolution_attempts WHERE success = FALSE`,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count failed attempts: %w", err)
	}
	return count, nil
}
