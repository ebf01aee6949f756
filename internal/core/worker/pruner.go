package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/sentinel/internal/infra/storage"
)

// Pruner garbage-collects terminal incidents and archived events past the
// retention window.
type Pruner struct {
	retention time.Duration
	incidents storage.IncidentRepository
	events    storage.EventRepository
	log       *slog.Logger
}

// NewPruner creates a new Pruner worker.
func NewPruner(
	retention time.Duration,
	incidents storage.IncidentRepository,
	events storage.EventRepository,
	logger *slog.Logger,
) *Pruner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pruner{
		retention: retention,
		incidents: incidents,
		events:    events,
		log:       logger,
	}
}

// Start runs the pruner loop.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	// Check interval: 10% of retention, clamped to [1m, 1h].
	interval := min(p.retention/10, time.Hour)
	interval = max(interval, time.Minute)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	// Initial prune
	p.prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.prune(ctx)
		}
	}
}

func (p *Pruner) prune(ctx context.Context) {
	cutoff := time.Now().Add(-p.retention)

	if n, err := p.incidents.DeleteTerminalOlderThan(ctx, cutoff); err != nil {
		p.log.Error("failed to prune incidents", "error", err)
	} else if n > 0 {
		p.log.Info("pruned terminal incidents", "count", n)
	}

	if n, err := p.events.DeleteOlderThan(ctx, cutoff); err != nil {
		p.log.Error("failed to prune events", "error", err)
	} else if n > 0 {
		p.log.Info("pruned archived events", "count", n)
	}
}
