package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/sentinel/internal/core/domain"
	"github.com/vietddude/sentinel/internal/metrics"
)

// PendingQueue persists notifications awaiting a retry so they survive a
// restart. Implemented by the redis client; nil falls back to in-process
// timers.
type PendingQueue interface {
	PushPendingNotification(ctx context.Context, n *domain.Notification, nextAttempt time.Time) error
	PopDueNotification(ctx context.Context) (*domain.Notification, bool, error)
}

// Dispatcher delivers notifications asynchronously with bounded retry.
type Dispatcher struct {
	gateway     Gateway
	strategy    RetryStrategy
	pending     PendingQueue
	sendTimeout time.Duration
	log         *slog.Logger

	queue chan job
	wg    sync.WaitGroup
	stop  chan struct{}
	once  sync.Once
}

type job struct {
	n       *domain.Notification
	attempt int
}

// NewDispatcher creates a dispatcher; pending may be nil.
func NewDispatcher(gateway Gateway, strategy RetryStrategy, pending PendingQueue, sendTimeout time.Duration, logger *slog.Logger) *Dispatcher {
	if strategy == nil {
		strategy = DefaultBackoff(nil)
	}
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		gateway:     gateway,
		strategy:    strategy,
		pending:     pending,
		sendTimeout: sendTimeout,
		log:         logger,
		queue:       make(chan job, 128),
		stop:        make(chan struct{}),
	}
}

// Start launches the delivery worker and, when a pending queue is
// configured, the retry drain loop.
func (d *Dispatcher) Start(ctx context.Context) {
	d.wg.Add(1)
	go d.deliverLoop(ctx)

	if d.pending != nil {
		d.wg.Add(1)
		go d.drainLoop(ctx)
	}
}

// Stop drains in-flight deliveries and returns.
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.stop) })
	d.wg.Wait()
}

// Enqueue hands a notification to the delivery worker without blocking
// the caller. A full queue spills to the pending store when available,
// otherwise the notification is dropped with a warning.
func (d *Dispatcher) Enqueue(n *domain.Notification) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now()
	}

	select {
	case d.queue <- job{n: n, attempt: n.Attempts}:
	default:
		if d.pending != nil {
			if err := d.pending.PushPendingNotification(context.Background(), n, time.Now()); err == nil {
				return
			}
		}
		metrics.NotificationFailures.WithLabelValues(string(n.Kind)).Inc()
		d.log.Warn("notification queue full, dropping", "kind", n.Kind, "fingerprint", n.Fingerprint)
	}
}

func (d *Dispatcher) deliverLoop(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stop:
			// Drain what is already queued before exiting.
			for {
				select {
				case j := <-d.queue:
					d.deliver(ctx, j)
				default:
					return
				}
			}
		case j := <-d.queue:
			d.deliver(ctx, j)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, j job) {
	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	deliveryID, err := d.gateway.Send(sendCtx, j.n)
	if err == nil {
		metrics.NotificationsSent.WithLabelValues(string(j.n.Kind), string(j.n.Severity)).Inc()
		d.log.Debug("notification delivered",
			"delivery_id", deliveryID,
			"kind", j.n.Kind,
			"fingerprint", j.n.Fingerprint)
		return
	}

	metrics.NotificationFailures.WithLabelValues(string(j.n.Kind)).Inc()
	if !d.strategy.ShouldRetry(err, j.attempt) {
		d.log.Error("notification delivery abandoned",
			"kind", j.n.Kind,
			"fingerprint", j.n.Fingerprint,
			"attempts", j.attempt+1,
			"error", err)
		return
	}

	delay := d.strategy.GetDelay(j.attempt)
	d.log.Warn("notification delivery failed, will retry",
		"kind", j.n.Kind,
		"fingerprint", j.n.Fingerprint,
		"attempt", j.attempt+1,
		"delay", delay,
		"error", err)

	j.n.Attempts = j.attempt + 1
	if d.pending != nil {
		if perr := d.pending.PushPendingNotification(ctx, j.n, time.Now().Add(delay)); perr == nil {
			return
		}
	}

	// In-process fallback: requeue after the backoff delay.
	next := job{n: j.n, attempt: j.attempt + 1}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		select {
		case <-ctx.Done():
		case <-d.stop:
		case <-time.After(delay):
			select {
			case d.queue <- next:
			default:
				d.log.Warn("retry queue full, dropping notification", "fingerprint", next.n.Fingerprint)
			}
		}
	}()
}

// drainLoop re-injects persisted notifications whose retry time has come.
func (d *Dispatcher) drainLoop(ctx context.Context) {
	defer d.wg.Done()
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stop:
			return
		case <-ticker.C:
			for {
				n, found, err := d.pending.PopDueNotification(ctx)
				if err != nil {
					d.log.Warn("failed to pop pending notification", "error", err)
					break
				}
				if !found {
					break
				}
				select {
				case d.queue <- job{n: n, attempt: n.Attempts}:
				default:
					// Queue full again; push back and try next tick.
					_ = d.pending.PushPendingNotification(ctx, n, time.Now().Add(5*time.Second))
				}
			}
		}
	}
}
