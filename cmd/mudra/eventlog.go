package main

import (
	"context"
	"log/slog"

	"github.com/ayusman/mudra/internal/gesture"
	"github.com/ayusman/mudra/internal/mapping"
	"github.com/ayusman/mudra/internal/store"
)

const (
	eventBuffer = 64
	// eventsKept bounds the history; older events are pruned every pruneEvery writes.
	eventsKept = 10000
	pruneEvery = 500
)

// eventLog writes stable gesture changes to the store off the driver goroutine.
type eventLog struct {
	repo     *store.EventRepository
	runID    string
	resolver mapping.Resolver
	logger   *slog.Logger
	ch       chan store.Event
	written  int
}

func newEventLog(repo *store.EventRepository, runID string, resolver mapping.Resolver, logger *slog.Logger) *eventLog {
	return &eventLog{
		repo:     repo,
		runID:    runID,
		resolver: resolver,
		logger:   logger.With("component", "events"),
		ch:       make(chan store.Event, eventBuffer),
	}
}

// Record queues c. It never blocks; events are dropped when the queue is
// full. Returns to None are not recorded.
func (l *eventLog) Record(c gesture.Classified) {
	if c.Label == gesture.None {
		return
	}
	e := store.Event{
		RunID:      l.runID,
		Role:       c.Role.String(),
		Gesture:    string(c.Label),
		Action:     string(l.resolver.Resolve(c.Label)),
		Confidence: c.Confidence,
		Frame:      c.Frame,
	}
	select {
	case l.ch <- e:
	default:
		l.logger.Warn("event queue full, dropping event", "gesture", e.Gesture)
	}
}

// Run writes queued events until ctx is done, then flushes what is queued.
func (l *eventLog) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case e := <-l.ch:
					l.write(e)
				default:
					return
				}
			}
		case e := <-l.ch:
			l.write(e)
		}
	}
}

func (l *eventLog) write(e store.Event) {
	if err := l.repo.Record(&e); err != nil {
		l.logger.Warn("failed to record event", "err", err)
		return
	}
	l.written++
	if l.written%pruneEvery == 0 {
		if _, err := l.repo.Prune(eventsKept); err != nil {
			l.logger.Warn("failed to prune events", "err", err)
		}
	}
}
