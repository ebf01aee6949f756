package orchestrate

import (
	"context"
	"log/slog"
	"sync"

	"github.com/vietddude/sentinel/internal/classify"
	"github.com/vietddude/sentinel/internal/core/domain"
	"github.com/vietddude/sentinel/internal/metrics"
)

// queued pairs an event with the urgency assigned at submission so the
// overflow policy can tell what it is about to shed.
type queued struct {
	event   *domain.ErrorEvent
	urgency domain.Urgency
}

// Dispatcher fans events out to a bounded worker pool. Events for
// distinct fingerprints run concurrently; the per-fingerprint lock inside
// Policy serializes recurrences. Critical-urgency events travel a
// guaranteed lane and are never dropped; on overflow of the normal lane
// the oldest low-urgency event is shed with a warning, falling back to
// the oldest overall when nothing low-urgency is queued.
type Dispatcher struct {
	policy     *Policy
	classifier *classify.Classifier
	log        *slog.Logger

	critical chan queued
	// ready wakes a worker when the normal lane has work. It carries at
	// most one token; popNormal re-signals while items remain.
	ready   chan struct{}
	workers int
	limit   int

	qmu   sync.Mutex
	queue []queued

	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewDispatcher creates the worker pool.
func NewDispatcher(policy *Policy, classifier *classify.Classifier, queueSize, workers int, logger *slog.Logger) *Dispatcher {
	if queueSize < 1 {
		queueSize = 256
	}
	if workers < 1 {
		workers = 4
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		policy:     policy,
		classifier: classifier,
		log:        logger,
		critical:   make(chan queued, queueSize),
		ready:      make(chan struct{}, 1),
		workers:    workers,
		limit:      queueSize,
	}
}

// Start launches the workers.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx)
	}
}

// Stop rejects new submissions and waits for in-flight work to finish.
// In-flight resolution attempts run to completion or their timeout, so
// every accepted event records a terminal outcome.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.critical)
		close(d.ready)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Submit routes an event onto a lane by its classified urgency. Returns
// false if the dispatcher is shut down.
func (d *Dispatcher) Submit(event *domain.ErrorEvent) bool {
	urgency := d.classifier.Classify(event).Urgency

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return false
	}

	item := queued{event: event, urgency: urgency}
	if urgency == domain.UrgencyCritical {
		// Guaranteed lane: block rather than drop.
		d.critical <- item
		metrics.QueueDepth.Set(d.depth())
		return true
	}

	d.qmu.Lock()
	for len(d.queue) >= d.limit {
		d.shedLocked()
	}
	d.queue = append(d.queue, item)
	d.qmu.Unlock()

	select {
	case d.ready <- struct{}{}:
	default:
	}
	metrics.QueueDepth.Set(d.depth())
	return true
}

// shedLocked drops the oldest low-urgency event in the queue, or the
// oldest overall when every queued event outranks low. Callers hold qmu.
func (d *Dispatcher) shedLocked() {
	idx := 0
	for i, q := range d.queue {
		if q.urgency == domain.UrgencyLow {
			idx = i
			break
		}
	}
	victim := d.queue[idx]
	d.queue = append(d.queue[:idx], d.queue[idx+1:]...)
	metrics.EventsDropped.WithLabelValues(string(victim.urgency)).Inc()
	d.log.Warn("decision queue full, dropping queued event",
		"dropped_fingerprint", victim.event.Fingerprint,
		"dropped_urgency", victim.urgency)
}

// popNormal removes the oldest queued event and re-arms the wake token
// when more work remains.
func (d *Dispatcher) popNormal() (queued, bool) {
	d.qmu.Lock()
	defer d.qmu.Unlock()
	if len(d.queue) == 0 {
		return queued{}, false
	}
	item := d.queue[0]
	d.queue = d.queue[1:]
	if len(d.queue) > 0 {
		select {
		case d.ready <- struct{}{}:
		default:
		}
	}
	return item, true
}

func (d *Dispatcher) depth() float64 {
	d.qmu.Lock()
	n := len(d.queue)
	d.qmu.Unlock()
	return float64(n + len(d.critical))
}

func (d *Dispatcher) worker(ctx context.Context) {
	defer d.wg.Done()
	for {
		// Prefer the critical lane when both have work.
		select {
		case item, ok := <-d.critical:
			if !ok {
				d.drainNormal(ctx)
				return
			}
			d.process(ctx, item)
			continue
		default:
		}

		select {
		case <-ctx.Done():
			return
		case item, ok := <-d.critical:
			if !ok {
				d.drainNormal(ctx)
				return
			}
			d.process(ctx, item)
		case _, ok := <-d.ready:
			if !ok {
				d.drainNormal(ctx)
				return
			}
			if item, has := d.popNormal(); has {
				d.process(ctx, item)
			}
		}
	}
}

// drainNormal finishes already-accepted normal-lane events on shutdown.
func (d *Dispatcher) drainNormal(ctx context.Context) {
	for {
		item, ok := d.popNormal()
		if !ok {
			return
		}
		d.process(ctx, item)
	}
}

func (d *Dispatcher) process(ctx context.Context, item queued) {
	metrics.QueueDepth.Set(d.depth())
	if err := d.policy.Process(ctx, item.event); err != nil {
		d.log.Error("decision cycle failed",
			"fingerprint", item.event.Fingerprint,
			"error", err)
	}
}
