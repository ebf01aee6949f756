package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
	"github.com/vietddude/sentinel/internal/infra/storage"
)

func TestIncidentRepo_SaveAndGet(t *testing.T) {
	repo := NewIncidentRepo(NewMemoryStorage())
	ctx := context.Background()

	if _, err := repo.Get(ctx, "missing"); !errors.Is(err, storage.ErrIncidentNotFound) {
		t.Errorf("expected ErrIncidentNotFound, got %v", err)
	}

	inc := &domain.Incident{
		Fingerprint: "fp-1",
		State:       domain.IncidentStateNew,
		FirstSeen:   time.Now(),
	}
	if err := repo.Save(ctx, inc); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := repo.Get(ctx, "fp-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.State != domain.IncidentStateNew {
		t.Errorf("expected state new, got %s", got.State)
	}

	// Mutating the returned copy must not corrupt the store.
	got.State = domain.IncidentStateEscalated
	again, _ := repo.Get(ctx, "fp-1")
	if again.State != domain.IncidentStateNew {
		t.Error("Get must return a defensive copy")
	}
}

func TestIncidentRepo_OpenCountsExcludeTerminal(t *testing.T) {
	repo := NewIncidentRepo(NewMemoryStorage())
	ctx := context.Background()

	states := []domain.IncidentState{
		domain.IncidentStateUnresolved,
		domain.IncidentStateResolving,
		domain.IncidentStateResolved,
		domain.IncidentStateEscalated,
	}
	for i, s := range states {
		_ = repo.Save(ctx, &domain.Incident{Fingerprint: string(rune('a' + i)), State: s})
	}

	open, err := repo.ListOpen(ctx)
	if err != nil {
		t.Fatalf("ListOpen failed: %v", err)
	}
	if len(open) != 2 {
		t.Errorf("expected 2 open incidents, got %d", len(open))
	}
	count, _ := repo.CountOpen(ctx)
	if count != 2 {
		t.Errorf("expected CountOpen 2, got %d", count)
	}
}

func TestIncidentRepo_DeleteTerminalOlderThan(t *testing.T) {
	repo := NewIncidentRepo(NewMemoryStorage())
	ctx := context.Background()
	now := time.Now()

	_ = repo.Save(ctx, &domain.Incident{Fingerprint: "old-resolved", State: domain.IncidentStateResolved, UpdatedAt: now.Add(-48 * time.Hour)})
	_ = repo.Save(ctx, &domain.Incident{Fingerprint: "new-resolved", State: domain.IncidentStateResolved, UpdatedAt: now})
	_ = repo.Save(ctx, &domain.Incident{Fingerprint: "old-open", State: domain.IncidentStateUnresolved, UpdatedAt: now.Add(-48 * time.Hour)})

	removed, err := repo.DeleteTerminalOlderThan(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteTerminalOlderThan failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	// Open incidents are never pruned regardless of age.
	if _, err := repo.Get(ctx, "old-open"); err != nil {
		t.Error("open incident must survive pruning")
	}
	if _, err := repo.Get(ctx, "old-resolved"); !errors.Is(err, storage.ErrIncidentNotFound) {
		t.Error("stale terminal incident should be pruned")
	}
}

func TestEventRepo_LastSeenAndListSince(t *testing.T) {
	repo := NewEventRepo(NewMemoryStorage())
	ctx := context.Background()
	now := time.Now()

	for i, offset := range []time.Duration{-30 * time.Minute, -10 * time.Minute, -time.Minute} {
		_ = repo.Save(ctx, &domain.ErrorEvent{
			Fingerprint: "fp-1",
			Message:     "oom",
			Count:       i + 1,
			LastSeen:    now.Add(offset),
		})
	}

	last, err := repo.LastSeen(ctx, "fp-1")
	if err != nil {
		t.Fatalf("LastSeen failed: %v", err)
	}
	if !last.Equal(now.Add(-time.Minute)) {
		t.Errorf("expected newest LastSeen, got %v", last)
	}

	unknown, _ := repo.LastSeen(ctx, "fp-unknown")
	if !unknown.IsZero() {
		t.Errorf("unknown fingerprint should be zero time, got %v", unknown)
	}

	recent, err := repo.ListSince(ctx, now.Add(-15*time.Minute))
	if err != nil {
		t.Fatalf("ListSince failed: %v", err)
	}
	if len(recent) != 2 {
		t.Errorf("expected 2 recent events, got %d", len(recent))
	}
}

func TestEventRepo_DeleteOlderThan(t *testing.T) {
	repo := NewEventRepo(NewMemoryStorage())
	ctx := context.Background()
	now := time.Now()

	_ = repo.Save(ctx, &domain.ErrorEvent{Fingerprint: "a", LastSeen: now.Add(-2 * time.Hour)})
	_ = repo.Save(ctx, &domain.ErrorEvent{Fingerprint: "b", LastSeen: now})

	removed, err := repo.DeleteOlderThan(ctx, now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("DeleteOlderThan failed: %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	left, _ := repo.ListSince(ctx, time.Time{})
	if len(left) != 1 || left[0].Fingerprint != "b" {
		t.Errorf("expected only the recent event to survive, got %v", left)
	}
}

func TestAttemptRepo_Counts(t *testing.T) {
	repo := NewAttemptRepo(NewMemoryStorage())
	ctx := context.Background()

	_ = repo.Add(ctx, &domain.ResolutionAttempt{ID: "1", Fingerprint: "fp-1", Success: true})
	_ = repo.Add(ctx, &domain.ResolutionAttempt{ID: "2", Fingerprint: "fp-1", Success: false})
	_ = repo.Add(ctx, &domain.ResolutionAttempt{ID: "3", Fingerprint: "fp-2", Success: false})

	n, err := repo.CountForFingerprint(ctx, "fp-1")
	if err != nil {
		t.Fatalf("CountForFingerprint failed: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 attempts for fp-1, got %d", n)
	}

	failed, _ := repo.CountFailed(ctx)
	if failed != 2 {
		t.Errorf("expected 2 failed attempts, got %d", failed)
	}
}
