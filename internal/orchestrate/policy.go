// Package orchestrate is the decision core: it turns classified error
// events into alert, resolution and escalation intents while tracking
// per-fingerprint incident state.
package orchestrate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/sentinel/internal/classify"
	"github.com/vietddude/sentinel/internal/core/domain"
	"github.com/vietddude/sentinel/internal/infra/storage"
	"github.com/vietddude/sentinel/internal/metrics"
	"github.com/vietddude/sentinel/internal/resolve"
)

// Notifier hands notification intents to the delivery layer without
// blocking.
type Notifier interface {
	Enqueue(n *domain.Notification)
}

// Coordinator is the optional cross-process coordination layer,
// implemented by the redis client. It backs resolution mutual exclusion
// and the shared alert cool-down marker.
type Coordinator interface {
	AcquireResolutionLock(ctx context.Context, fingerprint string, ttl time.Duration) (bool, error)
	ReleaseResolutionLock(ctx context.Context, fingerprint string) error
	RefreshResolutionLock(ctx context.Context, fingerprint string, ttl time.Duration) error
	MarkNotified(ctx context.Context, fingerprint string, window time.Duration) error
	InCooldown(ctx context.Context, fingerprint string) (bool, error)
}

// PolicyConfig carries the operator-configured thresholds the policy
// consults. Values come from configuration, never hard-coded.
type PolicyConfig struct {
	Environment            string
	CoolDownWindow         time.Duration
	CriticalCountThreshold int
	ResolutionEnabled      bool
	ConfidenceThreshold    float64
	AllowedSafetyLevels    []domain.SafetyLevel
	StrategyTimeout        time.Duration
	LockTTL                time.Duration
	DryRun                 bool
}

// Policy sequences classification, resolution and notification for a
// stream of error events. Incident records are the only mutable shared
// state; all access goes through the per-fingerprint lock.
type Policy struct {
	cfg        PolicyConfig
	classifier *classify.Classifier
	engine     *resolve.Engine
	notifier   Notifier
	incidents  storage.IncidentRepository
	attempts   storage.AttemptRepository
	coord      Coordinator
	locks      *keyedLocks
	log        *slog.Logger
}

// NewPolicy wires the decision core. coord may be nil for single-process
// deployments.
func NewPolicy(
	cfg PolicyConfig,
	classifier *classify.Classifier,
	engine *resolve.Engine,
	notifier Notifier,
	incidents storage.IncidentRepository,
	attempts storage.AttemptRepository,
	coord Coordinator,
	logger *slog.Logger,
) *Policy {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = 2 * time.Minute
	}
	return &Policy{
		cfg:        cfg,
		classifier: classifier,
		engine:     engine,
		notifier:   notifier,
		incidents:  incidents,
		attempts:   attempts,
		coord:      coord,
		locks:      newKeyedLocks(),
		log:        logger,
	}
}

// Process runs one full decision cycle for an event. Events for the same
// fingerprint are serialized; a failure for one event never propagates to
// the processing of others.
func (p *Policy) Process(ctx context.Context, event *domain.ErrorEvent) error {
	unlock := p.locks.Lock(event.Fingerprint)
	defer unlock()

	cl := p.classifier.Classify(event)
	metrics.Classifications.WithLabelValues(string(cl.Category), string(cl.Urgency)).Inc()

	incident, err := p.loadIncident(ctx, event)
	if err != nil {
		return fmt.Errorf("load incident %s: %w", event.Fingerprint, err)
	}

	// A recurrence already handled by a terminal incident is a no-op
	// unless the event is a genuinely newer occurrence.
	if incident.State.IsTerminal() && !event.LastSeen.After(incident.UpdatedAt) {
		p.log.Debug("duplicate occurrence for terminal incident, skipping",
			"fingerprint", event.Fingerprint,
			"state", incident.State,
			"resolved_by", incident.LastResolvedBy)
		metrics.EventsProcessed.WithLabelValues(event.Environment, "deduplicated").Inc()
		return nil
	}
	if incident.State.IsTerminal() {
		p.reopen(incident)
	}

	// The in-flight check sees the loaded state: a crash can persist a
	// resolving row, and that occurrence sits out one cycle. The save at
	// the end of this cycle clears the stale state for the next one.
	attemptAllowed := p.ShouldAttemptResolution(cl, incident)
	incident.State = domain.IncidentStateClassified

	var result *domain.StrategyResult
	var resolveErr error
	if attemptAllowed {
		result, resolveErr = p.attemptResolution(ctx, event, cl, incident)
	}

	outcome := "no_action"
	switch {
	case p.ShouldEscalate(event, cl, resolveErr):
		// Escalation fires even when a resolution succeeded: operators
		// must see critical-volume incidents regardless of outcome.
		if incident.State != domain.IncidentStateResolved {
			incident.State = domain.IncidentStateEscalated
		}
		incident.EscalationLevel++
		p.sendNotification(incident, p.escalationNotification(event, cl, result))
		outcome = "escalated"

	case result != nil && result.Success:
		p.sendNotification(incident, p.resolutionNotification(event, cl, result, true))
		outcome = "resolved"

	case result != nil:
		// Attempted and failed, below the escalation bar.
		p.sendNotification(incident, p.resolutionNotification(event, cl, result, false))
		outcome = "unresolved"

	case p.ShouldSendAlert(cl, incident) && !p.inSharedCooldown(ctx, event.Fingerprint):
		incident.State = domain.IncidentStateNotifying
		p.sendNotification(incident, p.alertNotification(event, cl))
		incident.State = domain.IncidentStateUnresolved
		p.markSharedCooldown(ctx, event.Fingerprint)
		outcome = "alerted"
	}

	incident.UpdatedAt = event.LastSeen
	if err := p.incidents.Save(ctx, incident); err != nil {
		p.log.Error("failed to persist incident", "fingerprint", event.Fingerprint, "error", err)
	}
	metrics.EventsProcessed.WithLabelValues(event.Environment, outcome).Inc()
	return nil
}

// ShouldSendAlert is true for non-low urgency when the incident is new or
// out of the cool-down window.
func (p *Policy) ShouldSendAlert(cl domain.Classification, incident *domain.Incident) bool {
	if cl.Urgency == domain.UrgencyLow {
		return false
	}
	if incident.LastNotifiedAt.IsZero() {
		return true
	}
	return time.Since(incident.LastNotifiedAt) > p.cfg.CoolDownWindow
}

// ShouldAttemptResolution is true when auto-resolution is enabled, the
// classification clears the environment's confidence bar, and no
// resolution is already in flight for this fingerprint.
func (p *Policy) ShouldAttemptResolution(cl domain.Classification, incident *domain.Incident) bool {
	if !p.cfg.ResolutionEnabled {
		return false
	}
	if cl.Confidence < p.cfg.ConfidenceThreshold {
		return false
	}
	return incident.State != domain.IncidentStateResolving
}

// ShouldEscalate is true for critical recurrence volume in production,
// critical urgency, unclassifiable events, or exhausted resolution
// candidates. An event no rule recognizes needs a human regardless of
// volume.
func (p *Policy) ShouldEscalate(event *domain.ErrorEvent, cl domain.Classification, resolveErr error) bool {
	if event.IsProduction() && event.IsCritical(p.cfg.CriticalCountThreshold) {
		return true
	}
	if cl.Urgency == domain.UrgencyCritical {
		return true
	}
	if cl.Category == domain.CategoryUnknown && cl.Confidence == 0 {
		return true
	}
	return errors.Is(resolveErr, resolve.ErrStrategyExhausted)
}

// inSharedCooldown consults the cross-process cool-down marker. Errors
// fail open so a redis outage never silences alerts.
func (p *Policy) inSharedCooldown(ctx context.Context, fingerprint string) bool {
	if p.coord == nil {
		return false
	}
	cooling, err := p.coord.InCooldown(ctx, fingerprint)
	if err != nil {
		p.log.Warn("cool-down check failed", "fingerprint", fingerprint, "error", err)
		return false
	}
	return cooling
}

func (p *Policy) markSharedCooldown(ctx context.Context, fingerprint string) {
	if p.coord == nil {
		return
	}
	if err := p.coord.MarkNotified(ctx, fingerprint, p.cfg.CoolDownWindow); err != nil {
		p.log.Warn("failed to mark cool-down", "fingerprint", fingerprint, "error", err)
	}
}

func (p *Policy) attemptResolution(ctx context.Context, event *domain.ErrorEvent, cl domain.Classification, incident *domain.Incident) (*domain.StrategyResult, error) {
	if p.coord != nil {
		ok, err := p.coord.AcquireResolutionLock(ctx, event.Fingerprint, p.cfg.LockTTL)
		if err != nil {
			p.log.Warn("resolution lock unavailable", "fingerprint", event.Fingerprint, "error", err)
			return nil, nil
		}
		if !ok {
			p.log.Debug("resolution already in flight elsewhere", "fingerprint", event.Fingerprint)
			return nil, nil
		}
		stopRefresh := make(chan struct{})
		go p.refreshLock(ctx, event.Fingerprint, stopRefresh)
		defer func() {
			close(stopRefresh)
			if err := p.coord.ReleaseResolutionLock(ctx, event.Fingerprint); err != nil {
				p.log.Warn("failed to release resolution lock", "fingerprint", event.Fingerprint, "error", err)
			}
		}()
	}

	incident.State = domain.IncidentStateResolving
	incident.LastResolutionAttempt = time.Now()
	incident.ResolutionAttempts++
	metrics.InFlightResolutions.Inc()
	defer metrics.InFlightResolutions.Dec()

	result, resolveErr := p.engine.Resolve(ctx, event, cl, resolve.Options{
		DryRun:              p.cfg.DryRun,
		ConfidenceThreshold: p.cfg.ConfidenceThreshold,
		AllowedSafetyLevels: p.cfg.AllowedSafetyLevels,
		StrategyTimeout:     p.cfg.StrategyTimeout,
	})

	p.recordAttempt(ctx, event.Fingerprint, result)

	if result != nil && result.Success {
		incident.State = domain.IncidentStateResolved
		incident.LastResolvedBy = result.Strategy
	} else {
		incident.State = domain.IncidentStateUnresolved
	}
	return result, resolveErr
}

// refreshLock keeps the distributed lock alive while a slow resolution
// runs, so the TTL only expires locks held by crashed processes.
func (p *Policy) refreshLock(ctx context.Context, fingerprint string, done <-chan struct{}) {
	ticker := time.NewTicker(p.cfg.LockTTL / 2)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.coord.RefreshResolutionLock(ctx, fingerprint, p.cfg.LockTTL); err != nil {
				p.log.Warn("failed to refresh resolution lock", "fingerprint", fingerprint, "error", err)
			}
		}
	}
}

func (p *Policy) recordAttempt(ctx context.Context, fingerprint string, result *domain.StrategyResult) {
	if result == nil {
		return
	}
	attempt := &domain.ResolutionAttempt{
		ID:           uuid.New().String(),
		Fingerprint:  fingerprint,
		Strategy:     result.Strategy,
		Success:      result.Success,
		Message:      result.Message,
		ActionsTaken: result.ActionsTaken,
		Duration:     result.ExecutionTime,
		DryRun:       result.DryRun,
		CreatedAt:    time.Now(),
	}
	if err := p.attempts.Add(ctx, attempt); err != nil {
		p.log.Warn("failed to record resolution attempt", "fingerprint", fingerprint, "error", err)
	}
}

func (p *Policy) sendNotification(incident *domain.Incident, n *domain.Notification) {
	p.notifier.Enqueue(n)
	incident.LastNotifiedAt = time.Now()
}

func (p *Policy) loadIncident(ctx context.Context, event *domain.ErrorEvent) (*domain.Incident, error) {
	incident, err := p.incidents.Get(ctx, event.Fingerprint)
	if errors.Is(err, storage.ErrIncidentNotFound) {
		return &domain.Incident{
			Fingerprint: event.Fingerprint,
			State:       domain.IncidentStateNew,
			FirstSeen:   event.FirstSeen,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return incident, nil
}

// reopen resets a terminal incident for a new occurrence. Escalation
// level and attempt counts carry over as history.
func (p *Policy) reopen(incident *domain.Incident) {
	p.log.Info("re-opening incident for new occurrence",
		"fingerprint", incident.Fingerprint,
		"previous_state", incident.State)
	incident.State = domain.IncidentStateNew
}

func severityFor(u domain.Urgency) domain.Severity {
	switch u {
	case domain.UrgencyCritical:
		return domain.SeverityCritical
	case domain.UrgencyHigh:
		return domain.SeverityWarning
	default:
		return domain.SeverityInfo
	}
}

func (p *Policy) alertNotification(event *domain.ErrorEvent, cl domain.Classification) *domain.Notification {
	return &domain.Notification{
		Kind:        domain.NotifyAlert,
		Severity:    severityFor(cl.Urgency),
		Fingerprint: event.Fingerprint,
		Title:       fmt.Sprintf("[%s] %s error in %s", cl.Urgency, cl.Category, event.Environment),
		Body:        event.Message,
		Payload: map[string]string{
			"category":   string(cl.Category),
			"confidence": fmt.Sprintf("%.2f", cl.Confidence),
			"count":      fmt.Sprintf("%d", event.Count),
		},
	}
}

func (p *Policy) resolutionNotification(event *domain.ErrorEvent, cl domain.Classification, result *domain.StrategyResult, success bool) *domain.Notification {
	kind := domain.NotifyResolutionSuccess
	severity := domain.SeverityInfo
	title := fmt.Sprintf("auto-resolved %s error via %s", cl.Category, result.Strategy)
	if !success {
		kind = domain.NotifyResolutionFailure
		severity = domain.SeverityWarning
		title = fmt.Sprintf("auto-resolution of %s error failed", cl.Category)
	}
	return &domain.Notification{
		Kind:        kind,
		Severity:    severity,
		Fingerprint: event.Fingerprint,
		Title:       title,
		Body:        result.Message,
		Payload: map[string]string{
			"strategy": result.Strategy,
			"actions":  fmt.Sprintf("%v", result.ActionsTaken),
		},
	}
}

func (p *Policy) escalationNotification(event *domain.ErrorEvent, cl domain.Classification, result *domain.StrategyResult) *domain.Notification {
	body := event.Message
	if result != nil {
		body = fmt.Sprintf("%s (last resolution outcome: %s)", event.Message, result.Message)
	}
	return &domain.Notification{
		Kind:        domain.NotifyEscalation,
		Severity:    domain.SeverityCritical,
		Fingerprint: event.Fingerprint,
		Title:       fmt.Sprintf("escalation: %s error in %s (count %d)", cl.Category, event.Environment, event.Count),
		Body:        body,
		Payload: map[string]string{
			"category": string(cl.Category),
			"urgency":  string(cl.Urgency),
			"impact":   string(cl.Impact),
		},
	}
}
