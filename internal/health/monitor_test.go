package health

import (
	"context"
	"testing"

	"github.com/vietddude/sentinel/internal/core/domain"
	"github.com/vietddude/sentinel/internal/infra/storage/memory"
)

type fakeBacklog struct {
	depth int64
}

func (b *fakeBacklog) PendingNotifications(ctx context.Context) (int64, error) {
	return b.depth, nil
}

func openIncidents(t *testing.T, store *memory.MemoryStorage, n int) {
	t.Helper()
	repo := memory.NewIncidentRepo(store)
	for i := 0; i < n; i++ {
		inc := &domain.Incident{
			Fingerprint: string(rune('a' + i%26)) + string(rune('0'+i/26)),
			State:       domain.IncidentStateUnresolved,
		}
		if err := repo.Save(context.Background(), inc); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
}

func newTestMonitor(store *memory.MemoryStorage, backlog NotificationBacklog) *Monitor {
	return NewMonitor(memory.NewIncidentRepo(store), memory.NewAttemptRepo(store), backlog, DefaultThresholds())
}

func TestCheckHealth_Healthy(t *testing.T) {
	store := memory.NewMemoryStorage()
	m := newTestMonitor(store, nil)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusHealthy {
		t.Errorf("expected healthy, got %s", report.Status)
	}
	if report.OpenIncidents != 0 {
		t.Errorf("expected 0 open incidents, got %d", report.OpenIncidents)
	}
}

func TestCheckHealth_DegradedOnOpenIncidents(t *testing.T) {
	store := memory.NewMemoryStorage()
	openIncidents(t, store, 15)
	m := newTestMonitor(store, nil)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusDegraded {
		t.Errorf("15 open incidents should degrade, got %s", report.Status)
	}
}

func TestCheckHealth_CriticalOnOpenIncidents(t *testing.T) {
	store := memory.NewMemoryStorage()
	openIncidents(t, store, 60)
	m := newTestMonitor(store, nil)

	report := m.CheckHealth(context.Background())
	if report.Status != StatusCritical {
		t.Errorf("60 open incidents should be critical, got %s", report.Status)
	}
}

func TestCheckHealth_BacklogDrivesStatus(t *testing.T) {
	store := memory.NewMemoryStorage()
	m := newTestMonitor(store, &fakeBacklog{depth: 150})

	report := m.CheckHealth(context.Background())
	if report.Status != StatusCritical {
		t.Errorf("deep notification backlog should be critical, got %s", report.Status)
	}
	if report.PendingNotifications != 150 {
		t.Errorf("expected backlog 150, got %d", report.PendingNotifications)
	}
}

func TestCheckHealth_RateLimited(t *testing.T) {
	store := memory.NewMemoryStorage()
	m := newTestMonitor(store, nil)

	first := m.CheckHealth(context.Background())
	openIncidents(t, store, 60)
	// Within the rate-limit window the cached report is served.
	second := m.CheckHealth(context.Background())

	if first.Status != second.Status {
		t.Errorf("cached report expected, got %s then %s", first.Status, second.Status)
	}
}
