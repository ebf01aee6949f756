// Package ingest pulls error events from a telemetry backend and feeds
// them into the decision loop, de-duplicating idempotent re-fetches.
package ingest

import (
	"context"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// Source supplies new error events since a checkpoint. Calling it again
// with the same checkpoint may return events already seen; the poller
// de-duplicates by fingerprint and LastSeen.
type Source interface {
	FetchNewEvents(ctx context.Context, checkpoint string) (events []*domain.ErrorEvent, newCheckpoint string, err error)
}
