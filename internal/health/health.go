// Package health provides system health monitoring and status reporting.
package health

// SystemStatus represents the overall health state of the system or a component.
type SystemStatus string

const (
	StatusHealthy  SystemStatus = "healthy"
	StatusDegraded SystemStatus = "degraded"
	StatusCritical SystemStatus = "critical"
)

// Report contains the responder's health metrics.
type Report struct {
	Status               SystemStatus `json:"status"`
	OpenIncidents        int          `json:"open_incidents"`
	FailedResolutions    int          `json:"failed_resolutions"`
	PendingNotifications int64        `json:"pending_notifications"`
}
