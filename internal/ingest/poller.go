package ingest

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/vietddude/sentinel/internal/core/domain"
	"github.com/vietddude/sentinel/internal/infra/storage"
)

// Sink accepts events for processing. Implemented by the orchestration
// dispatcher.
type Sink interface {
	Submit(event *domain.ErrorEvent) bool
}

// Poller drives the fetch loop: fetch since checkpoint, de-duplicate,
// archive, submit.
type Poller struct {
	source   Source
	sink     Sink
	events   storage.EventRepository
	interval time.Duration
	log      *slog.Logger

	checkpoint string
	stop       chan struct{}
	once       sync.Once
	wg         sync.WaitGroup
}

// NewPoller creates a poller over a telemetry source.
func NewPoller(source Source, sink Sink, events storage.EventRepository, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		source:   source,
		sink:     sink,
		events:   events,
		interval: interval,
		log:      logger,
		stop:     make(chan struct{}),
	}
}

// Start begins the polling loop.
func (p *Poller) Start(ctx context.Context) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()

		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()

		// Initial fetch so a fresh start does not wait a full interval.
		p.pollOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-p.stop:
				return
			case <-ticker.C:
				p.pollOnce(ctx)
			}
		}
	}()
}

// Stop halts the polling loop.
func (p *Poller) Stop() {
	p.once.Do(func() { close(p.stop) })
	p.wg.Wait()
}

// PollOnce runs a single fetch cycle and returns the number of events
// submitted. Used by the offline analyze path and the loop alike.
func (p *Poller) PollOnce(ctx context.Context) int {
	return p.pollOnce(ctx)
}

func (p *Poller) pollOnce(ctx context.Context) int {
	events, checkpoint, err := p.source.FetchNewEvents(ctx, p.checkpoint)
	if err != nil {
		p.log.Warn("telemetry fetch failed", "checkpoint", p.checkpoint, "error", err)
		return 0
	}
	p.checkpoint = checkpoint

	submitted := 0
	for _, ev := range events {
		fresh, err := p.isFresh(ctx, ev)
		if err != nil {
			p.log.Warn("dedup check failed", "fingerprint", ev.Fingerprint, "error", err)
		}
		if !fresh {
			continue
		}
		if err := p.events.Save(ctx, ev); err != nil {
			p.log.Warn("failed to archive event", "fingerprint", ev.Fingerprint, "error", err)
		}
		if p.sink.Submit(ev) {
			submitted++
		}
	}
	if submitted > 0 {
		p.log.Debug("events submitted", "count", submitted, "checkpoint", checkpoint)
	}
	return submitted
}

// isFresh rejects occurrences already archived for this fingerprint.
func (p *Poller) isFresh(ctx context.Context, ev *domain.ErrorEvent) (bool, error) {
	last, err := p.events.LastSeen(ctx, ev.Fingerprint)
	if err != nil {
		return true, err
	}
	return ev.LastSeen.After(last), nil
}
