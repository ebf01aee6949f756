package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
	"github.com/vietddude/sentinel/internal/infra/storage"
)

// MemoryStorage backs the repositories when no database is configured.
type MemoryStorage struct {
	incidents map[string]*domain.Incident
	events    []*domain.ErrorEvent
	attempts  []*domain.ResolutionAttempt
	mu        sync.RWMutex
}

func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		incidents: make(map[string]*domain.Incident),
	}
}

// -----------------------------------------------------------------------------
// Incident Repository
// -----------------------------------------------------------------------------

type IncidentRepo struct {
	store *MemoryStorage
}

func NewIncidentRepo(store *MemoryStorage) *IncidentRepo {
	return &IncidentRepo{store: store}
}

func (r *IncidentRepo) Save(ctx context.Context, inc *domain.Incident) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *inc
	r.store.incidents[inc.Fingerprint] = &cp
	return nil
}

func (r *IncidentRepo) Get(ctx context.Context, fingerprint string) (*domain.Incident, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	inc, ok := r.store.incidents[fingerprint]
	if !ok {
		return nil, storage.ErrIncidentNotFound
	}
	cp := *inc
	return &cp, nil
}

func (r *IncidentRepo) ListOpen(ctx context.Context) ([]*domain.Incident, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*domain.Incident
	for _, inc := range r.store.incidents {
		if !inc.State.IsTerminal() {
			cp := *inc
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *IncidentRepo) CountOpen(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	count := 0
	for _, inc := range r.store.incidents {
		if !inc.State.IsTerminal() {
			count++
		}
	}
	return count, nil
}

func (r *IncidentRepo) DeleteTerminalOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	removed := 0
	for fp, inc := range r.store.incidents {
		if inc.State.IsTerminal() && inc.UpdatedAt.Before(cutoff) {
			delete(r.store.incidents, fp)
			removed++
		}
	}
	return removed, nil
}

// -----------------------------------------------------------------------------
// Event Repository
// -----------------------------------------------------------------------------

type EventRepo struct {
	store *MemoryStorage
}

func NewEventRepo(store *MemoryStorage) *EventRepo {
	return &EventRepo{store: store}
}

func (r *EventRepo) Save(ctx context.Context, ev *domain.ErrorEvent) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *ev
	r.store.events = append(r.store.events, &cp)
	return nil
}

func (r *EventRepo) LastSeen(ctx context.Context, fingerprint string) (time.Time, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var last time.Time
	for _, ev := range r.store.events {
		if ev.Fingerprint == fingerprint && ev.LastSeen.After(last) {
			last = ev.LastSeen
		}
	}
	return last, nil
}

func (r *EventRepo) ListSince(ctx context.Context, since time.Time) ([]*domain.ErrorEvent, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	var out []*domain.ErrorEvent
	for _, ev := range r.store.events {
		if ev.LastSeen.After(since) {
			cp := *ev
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *EventRepo) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	kept := r.store.events[:0]
	removed := 0
	for _, ev := range r.store.events {
		if ev.LastSeen.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, ev)
	}
	r.store.events = kept
	return removed, nil
}

// -----------------------------------------------------------------------------
// Attempt Repository
// -----------------------------------------------------------------------------

type AttemptRepo struct {
	store *MemoryStorage
}

func NewAttemptRepo(store *MemoryStorage) *AttemptRepo {
	return &AttemptRepo{store: store}
}

func (r *AttemptRepo) Add(ctx context.Context, a *domain.ResolutionAttempt) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	cp := *a
	r.store.attempts = append(r.store.attempts, &cp)
	return nil
}

func (r *AttemptRepo) CountForFingerprint(ctx context.Context, fingerprint string) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	count := 0
	for _, a := range r.store.attempts {
		if a.Fingerprint == fingerprint {
			count++
		}
	}
	return count, nil
}

func (r *AttemptRepo) CountFailed(ctx context.Context) (int, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	count := 0
	for _, a := range r.store.attempts {
		if !a.Success {
			count++
		}
	}
	return count, nil
}
