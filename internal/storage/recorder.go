package storage

import (
	"context"

	"metronome/internal/eventbus"
	"metronome/internal/services/scheduler"
	"metronome/pkg/logx"
)

// Recorder bridges the event bus to the store: every finished or failed
// execution becomes one ExecutionRecord. It runs until ctx is done.
type Recorder struct {
	store Store
	bus   eventbus.Bus
	log   logx.Logger
}

func NewRecorder(store Store, bus eventbus.Bus, log logx.Logger) *Recorder {
	return &Recorder{store: store, bus: bus, log: log}
}

func (r *Recorder) Run(ctx context.Context) {
	ch, unsub := r.bus.Subscribe(64)
	defer unsub()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			r.handle(ctx, ev)
		}
	}
}

func (r *Recorder) handle(ctx context.Context, ev eventbus.Event) {
	switch ev.Type {
	case scheduler.EventExecFinished, scheduler.EventExecFailed:
	default:
		return
	}
	ee, ok := ev.Data.(scheduler.ExecutionEvent)
	if !ok {
		return
	}
	rec := ExecutionRecord{
		ExecID:     uint64(ee.ExecID),
		TaskID:     ee.TaskID,
		Expression: ee.Expression,
		Started:    ee.Started,
		Duration:   ee.Duration,
		Error:      ee.Error,
	}
	if err := r.store.AppendExecution(ctx, rec); err != nil && err != ErrDisabled {
		r.log.Warn("failed to record execution", logx.String("task", ee.TaskID), logx.Err(err))
	}
}
