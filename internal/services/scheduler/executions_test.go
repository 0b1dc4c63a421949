package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"metronome/internal/eventbus"
	"metronome/pkg/logx"
)

// captureBus records published events in order.
type captureBus struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (b *captureBus) Publish(e eventbus.Event) {
	b.mu.Lock()
	b.events = append(b.events, e)
	b.mu.Unlock()
}

func (b *captureBus) Subscribe(int) (<-chan eventbus.Event, func()) {
	ch := make(chan eventbus.Event)
	close(ch)
	return ch, func() {}
}

func (b *captureBus) snapshot() []eventbus.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]eventbus.Event, len(b.events))
	copy(out, b.events)
	return out
}

func TestExecutionLifecycleEvents(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2024, 7, 8, 10, 0, 0, 0, time.UTC)}
	bus := &captureBus{}
	s := New(Config{}, logx.Nop(), inlineExec{}, WithClock(clock), WithBus(bus))

	if err := s.Register("ok", "* * * * *", noopTask); err != nil {
		t.Fatalf("Register: %v", err)
	}
	s.tick(time.UTC, true)

	events := bus.snapshot()
	if len(events) != 2 {
		t.Fatalf("got %d events, want started+finished", len(events))
	}
	if events[0].Type != EventExecStarted || events[1].Type != EventExecFinished {
		t.Fatalf("event types = [%s %s], want [%s %s]", events[0].Type, events[1].Type, EventExecStarted, EventExecFinished)
	}
	ee, ok := events[1].Data.(ExecutionEvent)
	if !ok {
		t.Fatalf("finished payload is %T, want ExecutionEvent", events[1].Data)
	}
	if ee.TaskID != "ok" || ee.Expression != "* * * * *" || ee.Error != "" {
		t.Fatalf("unexpected payload: %+v", ee)
	}
}

func TestFailedExecutionEvent(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2024, 7, 8, 10, 0, 0, 0, time.UTC)}
	bus := &captureBus{}
	s := New(Config{}, logx.Nop(), inlineExec{}, WithClock(clock), WithBus(bus))

	taskErr := errors.New("disk full")
	if err := s.Register("broken", "* * * * *", func(context.Context) error {
		return taskErr
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	s.tick(time.UTC, true)

	events := bus.snapshot()
	if len(events) != 2 {
		t.Fatalf("got %d events, want started+failed", len(events))
	}
	if events[1].Type != EventExecFailed {
		t.Fatalf("second event = %s, want %s", events[1].Type, EventExecFailed)
	}
	ee := events[1].Data.(ExecutionEvent)
	if ee.Error != taskErr.Error() {
		t.Fatalf("payload error = %q, want %q", ee.Error, taskErr)
	}
}

func TestPanicReportsAsFailure(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2024, 7, 8, 10, 0, 0, 0, time.UTC)}
	bus := &captureBus{}
	s := New(Config{}, logx.Nop(), inlineExec{}, WithClock(clock), WithBus(bus))

	if err := s.Register("bomb", "* * * * *", func(context.Context) error {
		panic("boom")
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	s.tick(time.UTC, true)

	events := bus.snapshot()
	if len(events) != 2 || events[1].Type != EventExecFailed {
		t.Fatalf("events = %v, want started then failed", events)
	}
	ee := events[1].Data.(ExecutionEvent)
	if ee.Error == "" {
		t.Fatal("panic produced empty error in failure event")
	}
}

func TestExecutionIDsMonotonic(t *testing.T) {
	t.Parallel()
	set := newExecutionSet()
	e := Entry{ID: "job", Pattern: mustPattern(t, "* * * * *", repAnchor)}

	a := set.add(e, repAnchor)
	b := set.add(e, repAnchor)
	if b.id <= a.id {
		t.Fatalf("ids not monotonic: %d then %d", a.id, b.id)
	}

	set.remove(a.id)
	set.remove(a.id) // idempotent
	if set.len() != 1 {
		t.Fatalf("len = %d, want 1", set.len())
	}

	snap := set.snapshot()
	if len(snap) != 1 || snap[0].ID != b.id {
		t.Fatalf("snapshot = %+v, want only execution %d", snap, b.id)
	}
}
