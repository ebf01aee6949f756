package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// EventRepo implements storage.EventRepository using PostgreSQL.
type EventRepo struct {
	db *DB
}

// NewEventRepo creates a new PostgreSQL event repository.
func NewEventRepo(db *DB) *EventRepo {
	return &EventRepo{db: db}
}

// Save archives an event occurrence.
func (r *EventRepo) Save(ctx context.Context, ev *domain.ErrorEvent) error {
	tags, err := json.Marshal(ev.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}
	evCtx, err := json.Marshal(ev.Context)
	if err != nil {
		return fmt.Errorf("failed to marshal context: %w", err)
	}

	query := `
		INSERT INTO error_events (fingerprint, message, level, environment, count,
			first_seen, last_seen, tags, context)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = r.db.ExecContext(ctx, query,
		ev.Fingerprint, ev.Message, string(ev.Level), ev.Environment, ev.Count,
		ev.FirstSeen, ev.LastSeen, tags, evCtx,
	)
	if err != nil {
		return fmt.Errorf("failed to save event: %w", err)
	}
	return nil
}

// LastSeen returns the most recent LastSeen stored for a fingerprint.
// A fingerprint never seen returns the zero time.
func (r *EventRepo) LastSeen(ctx context.Context, fingerprint string) (time.Time, error) {
	var last time.Time
	err := r.db.QueryRowContext(ctx,
		`SELECT MAX(last_seen) FROM error_events WHERE fingerprint = $1`,
		fingerprint,
	).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		// MAX over no rows yields NULL, which fails the time scan.
		return time.Time{}, nil
	}
	return last, nil
}

// ListSince retrieves events seen after the given time.
func (r *EventRepo) ListSince(ctx context.Context, since time.Time) ([]*domain.ErrorEvent, error) {
	query := `
		SELECT fingerprint, message, level, environment, count, first_seen, last_seen, tags, context
		FROM error_events
		WHERE last_seen > $1
		ORDER BY last_seen ASC
	`
	rows, err := r.db.QueryContext(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*domain.ErrorEvent
	for rows.Next() {
		var ev domain.ErrorEvent
		var level string
		var tags, evCtx []byte
		if err := rows.Scan(&ev.Fingerprint, &ev.Message, &level, &ev.Environment,
			&ev.Count, &ev.FirstSeen, &ev.LastSeen, &tags, &evCtx); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Level = domain.ErrorLevel(level)
		if len(tags) > 0 {
			_ = json.Unmarshal(tags, &ev.Tags)
		}
		if len(evCtx) > 0 {
			_ = json.Unmarshal(evCtx, &ev.Context)
		}
		out = append(out, &ev)
	}
	return out, rows.Err()
}

// DeleteOlderThan prunes archived events past retention.
func (r *EventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM error_events WHERE last_seen < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
