package audit

import (
	"context"
	"log/slog"
	"time"
)

// Recorder accepts events from domain services and hands them to the worker
// through a buffered channel. Record never blocks; when the buffer is full
// the event is dropped and counted in a warning log.
type Recorder struct {
	inbox  chan Event
	logger *slog.Logger
}

func NewRecorder(buffer int, logger *slog.Logger) *Recorder {
	return &Recorder{inbox: make(chan Event, buffer), logger: logger}
}

// Record stamps and enqueues an event.
func (r *Recorder) Record(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	select {
	case r.inbox <- event:
	default:
		if r.logger != nil {
			r.logger.Warn("audit event dropped",
				"action", string(event.Action),
				"entity_id", event.EntityID)
		}
	}
}

// Events exposes the channel consumed by the worker.
func (r *Recorder) Events() <-chan Event {
	return r.inbox
}

// Worker drains the recorder into the store.
type Worker struct {
	store Store
	inbox <-chan Event
}

func NewWorker(store Store, inbox <-chan Event) *Worker {
	return &Worker{store: store, inbox: inbox}
}

// Run persists events until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event := <-w.inbox:
			if err := w.store.Append(ctx, event); err != nil {
				return err
			}
		}
	}
}
