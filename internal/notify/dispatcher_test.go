package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
)

// ============================================================
// Test Doubles
// ============================================================

type fakeGateway struct {
	mu        sync.Mutex
	delivered []*domain.Notification
	failures  int // fail this many sends before succeeding
	sends     int
	err       error
}

func (g *fakeGateway) Send(ctx context.Context, n *domain.Notification) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sends++
	if g.failures > 0 {
		g.failures--
		return "", g.err
	}
	g.delivered = append(g.delivered, n)
	return "delivery-" + n.ID, nil
}

func (g *fakeGateway) count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.delivered)
}

func (g *fakeGateway) sendCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.sends
}

// memPending is an in-process stand-in for the redis retry queue.
type memPending struct {
	mu    sync.Mutex
	items []*domain.Notification
}

func (q *memPending) PushPendingNotification(_ context.Context, n *domain.Notification, _ time.Time) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, n)
	return nil
}

func (q *memPending) PopDueNotification(_ context.Context) (*domain.Notification, bool, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil, false, nil
	}
	n := q.items[0]
	q.items = q.items[1:]
	return n, true, nil
}

func testNotification(kind domain.NotificationKind) *domain.Notification {
	return &domain.Notification{
		Kind:        kind,
		Severity:    domain.SeverityWarning,
		Fingerprint: "fp-1",
		Title:       "database error in production",
		Body:        "connection pool exhausted",
	}
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

// ============================================================
// Dispatcher
// ============================================================

func TestDispatcher_DeliversEnqueued(t *testing.T) {
	gw := &fakeGateway{}
	d := NewDispatcher(gw, nil, nil, time.Second, nil)
	d.Start(context.Background())
	defer d.Stop()

	d.Enqueue(testNotification(domain.NotifyAlert))

	waitFor(t, 2*time.Second, func() bool { return gw.count() == 1 })
}

func TestDispatcher_AssignsIDAndTimestamp(t *testing.T) {
	gw := &fakeGateway{}
	d := NewDispatcher(gw, nil, nil, time.Second, nil)
	d.Start(context.Background())

	n := testNotification(domain.NotifyEscalation)
	d.Enqueue(n)
	d.Stop()

	if n.ID == "" {
		t.Error("Enqueue should assign an id")
	}
	if n.CreatedAt.IsZero() {
		t.Error("Enqueue should stamp creation time")
	}
}

func TestDispatcher_RetriesTransientFailure(t *testing.T) {
	gw := &fakeGateway{failures: 2, err: &HTTPStatusError{StatusCode: 503}}
	strategy := &ExponentialBackoff{
		InitialDelay: 5 * time.Millisecond,
		MaxDelay:     20 * time.Millisecond,
		MaxAttempts:  5,
		Classifier:   ClassifyDeliveryError,
	}
	d := NewDispatcher(gw, strategy, nil, time.Second, nil)
	d.Start(context.Background())
	defer d.Stop()

	d.Enqueue(testNotification(domain.NotifyAlert))

	waitFor(t, 2*time.Second, func() bool { return gw.count() == 1 })
}

func TestDispatcher_AbandonsPermanentFailure(t *testing.T) {
	gw := &fakeGateway{failures: 100, err: &HTTPStatusError{StatusCode: 404}}
	strategy := &ExponentialBackoff{
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		MaxAttempts:  5,
		Classifier:   ClassifyDeliveryError,
	}
	d := NewDispatcher(gw, strategy, nil, time.Second, nil)
	d.Start(context.Background())

	d.Enqueue(testNotification(domain.NotifyAlert))
	time.Sleep(50 * time.Millisecond)
	d.Stop()

	gw.mu.Lock()
	attempts := 100 - gw.failures
	gw.mu.Unlock()
	if attempts != 1 {
		t.Errorf("permanent failure should be tried exactly once, got %d", attempts)
	}
	if gw.count() != 0 {
		t.Error("permanently failed notification must not be delivered")
	}
}

func TestDispatcher_StopDrainsQueue(t *testing.T) {
	gw := &fakeGateway{}
	d := NewDispatcher(gw, nil, nil, time.Second, nil)
	d.Start(context.Background())

	for i := 0; i < 10; i++ {
		d.Enqueue(testNotification(domain.NotifyResolutionSuccess))
	}
	d.Stop()

	if gw.count() != 10 {
		t.Errorf("Stop should drain accepted notifications, delivered %d of 10", gw.count())
	}
}

func TestDispatcher_StopIsIdempotent(t *testing.T) {
	d := NewDispatcher(&fakeGateway{}, nil, nil, time.Second, nil)
	d.Start(context.Background())
	d.Stop()
	d.Stop()
}

func TestDispatcher_AttemptCountSurvivesPendingQueue(t *testing.T) {
	gw := &fakeGateway{failures: 100, err: &HTTPStatusError{StatusCode: 503}}
	pending := &memPending{}
	strategy := &ExponentialBackoff{
		InitialDelay: time.Millisecond,
		MaxDelay:     time.Millisecond,
		MaxAttempts:  2,
		Classifier:   ClassifyDeliveryError,
	}
	d := NewDispatcher(gw, strategy, pending, time.Second, nil)
	ctx := context.Background()

	n := testNotification(domain.NotifyAlert)
	d.deliver(ctx, job{n: n, attempt: n.Attempts})

	// The first failure lands in the pending queue carrying one attempt.
	stored, found, _ := pending.PopDueNotification(ctx)
	if !found {
		t.Fatal("expected notification in the pending queue")
	}
	if stored.Attempts != 1 {
		t.Fatalf("Attempts = %d, want 1", stored.Attempts)
	}

	// Re-injected the way the drain loop does, the second failure
	// carries two.
	d.deliver(ctx, job{n: stored, attempt: stored.Attempts})
	stored, found, _ = pending.PopDueNotification(ctx)
	if !found {
		t.Fatal("expected requeued notification")
	}
	if stored.Attempts != 2 {
		t.Fatalf("Attempts = %d, want 2", stored.Attempts)
	}

	// The retry bound holds across queue round trips: the next failure
	// is abandoned, not requeued.
	d.deliver(ctx, job{n: stored, attempt: stored.Attempts})
	if _, found, _ = pending.PopDueNotification(ctx); found {
		t.Error("delivery past the retry bound must be abandoned, not requeued")
	}
	if got := gw.sendCount(); got != 3 {
		t.Errorf("gateway called %d times, want 3 with two retries allowed", got)
	}
}
