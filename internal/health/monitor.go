package health

import (
	"context"
	"sync"
	"time"

	"github.com/vietddude/sentinel/internal/infra/storage"
	"github.com/vietddude/sentinel/internal/metrics"
)

// NotificationBacklog reports the depth of the pending-notification
// retry queue. Implemented by the redis client; nil means no backlog
// tracking.
type NotificationBacklog interface {
	PendingNotifications(ctx context.Context) (int64, error)
}

// Thresholds determine when the responder degrades.
type Thresholds struct {
	DegradedOpenIncidents int
	CriticalOpenIncidents int
	DegradedBacklog       int64
	CriticalBacklog       int64
}

// DefaultThresholds returns the out-of-the-box health limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		DegradedOpenIncidents: 10,
		CriticalOpenIncidents: 50,
		DegradedBacklog:       20,
		CriticalBacklog:       100,
	}
}

// Monitor aggregates health status from the responder's components.
type Monitor struct {
	incidents  storage.IncidentRepository
	attempts   storage.AttemptRepository
	backlog    NotificationBacklog
	thresholds Thresholds

	lastCheck  time.Time
	lastReport Report
	mu         sync.Mutex
}

// NewMonitor creates a new health monitor.
func NewMonitor(
	incidents storage.IncidentRepository,
	attempts storage.AttemptRepository,
	backlog NotificationBacklog,
	thresholds Thresholds,
) *Monitor {
	return &Monitor{
		incidents:  incidents,
		attempts:   attempts,
		backlog:    backlog,
		thresholds: thresholds,
	}
}

// CheckHealth performs a health check over all components.
func (m *Monitor) CheckHealth(ctx context.Context) Report {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Rate limit checks (max once per 10s) to avoid hammering storage.
	if time.Since(m.lastCheck) < 10*time.Second && !m.lastCheck.IsZero() {
		return m.lastReport
	}

	report := Report{Status: StatusHealthy}

	if open, err := m.incidents.CountOpen(ctx); err == nil {
		report.OpenIncidents = open
		metrics.OpenIncidents.Set(float64(open))
	} else {
		report.Status = StatusDegraded
	}

	if failed, err := m.attempts.CountFailed(ctx); err == nil {
		report.FailedResolutions = failed
	}

	if m.backlog != nil {
		if pending, err := m.backlog.PendingNotifications(ctx); err == nil {
			report.PendingNotifications = pending
		} else {
			report.Status = StatusDegraded
		}
	}

	// Evaluate status (worst case wins)
	t := m.thresholds
	if report.OpenIncidents >= t.CriticalOpenIncidents || report.PendingNotifications >= t.CriticalBacklog {
		report.Status = StatusCritical
	} else if report.Status == StatusHealthy &&
		(report.OpenIncidents >= t.DegradedOpenIncidents || report.PendingNotifications >= t.DegradedBacklog) {
		report.Status = StatusDegraded
	}

	m.lastCheck = time.Now()
	m.lastReport = report
	return report
}
