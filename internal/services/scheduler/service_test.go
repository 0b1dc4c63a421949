package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"metronome/pkg/logx"
)

// inlineExec runs submitted work synchronously, so tests observe execution
// side effects as soon as tick returns.
type inlineExec struct{}

func (inlineExec) Submit(fn func()) { fn() }

// fakeClock is a settable time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func newTestService(t *testing.T, cfg Config, clock *fakeClock) *Service {
	t.Helper()
	return New(cfg, logx.Nop(), inlineExec{}, WithClock(clock))
}

func TestTickFiresOncePerMatchingMinute(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2024, 7, 8, 11, 59, 0, 0, time.UTC)}
	s := newTestService(t, Config{}, clock)

	var runs atomic.Int64
	err := s.Register("noon", "0 12 * * *", func(context.Context) error {
		runs.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Two simulated days; the pattern's anchor second is 0 (registration time).
	for _, at := range []time.Time{
		time.Date(2024, 7, 8, 11, 59, 0, 0, time.UTC),
		time.Date(2024, 7, 8, 12, 0, 0, 0, time.UTC),
		time.Date(2024, 7, 8, 12, 1, 0, 0, time.UTC),
		time.Date(2024, 7, 9, 12, 0, 0, 0, time.UTC),
	} {
		clock.set(at)
		s.tick(time.UTC, true)
	}

	if got := runs.Load(); got != 2 {
		t.Fatalf("task ran %d times, want 2", got)
	}
}

func TestTickAlternation(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2024, 7, 8, 0, 0, 0, 0, time.UTC)}
	s := newTestService(t, Config{}, clock)

	var runs atomic.Int64
	err := s.Register("report", "0 9 * * 1-5 | 0 9 * * 6", func(context.Context) error {
		runs.Add(1)
		return nil
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	cases := []struct {
		at   time.Time
		want int64
	}{
		{time.Date(2024, 7, 8, 9, 0, 0, 0, time.UTC), 1},  // Monday: weekday alt
		{time.Date(2024, 7, 13, 9, 0, 0, 0, time.UTC), 2}, // Saturday: second alt
		{time.Date(2024, 7, 14, 9, 0, 0, 0, time.UTC), 2}, // Sunday: neither
		{time.Date(2024, 7, 15, 10, 0, 0, 0, time.UTC), 2}, // wrong hour
	}
	for _, tc := range cases {
		clock.set(tc.at)
		s.tick(time.UTC, true)
		if got := runs.Load(); got != tc.want {
			t.Fatalf("after tick at %v: runs = %d, want %d", tc.at, got, tc.want)
		}
	}
}

func TestAnchorSecondGatesMatch(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2024, 7, 8, 10, 0, 17, 0, time.UTC)}
	s := newTestService(t, Config{}, clock)

	var runs atomic.Int64
	if err := s.Register("hourly", "0 * * * *", func(context.Context) error {
		runs.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Registered at second 17, so with second matching on only :17 fires.
	clock.set(time.Date(2024, 7, 8, 11, 0, 16, 0, time.UTC))
	s.tick(time.UTC, true)
	clock.set(time.Date(2024, 7, 8, 11, 0, 17, 0, time.UTC))
	s.tick(time.UTC, true)
	clock.set(time.Date(2024, 7, 8, 11, 0, 18, 0, time.UTC))
	s.tick(time.UTC, true)
	if got := runs.Load(); got != 1 {
		t.Fatalf("with seconds: runs = %d, want 1", got)
	}

	// Without second matching every probe inside the minute fires.
	clock.set(time.Date(2024, 7, 8, 12, 0, 3, 0, time.UTC))
	s.tick(time.UTC, false)
	clock.set(time.Date(2024, 7, 8, 12, 0, 4, 0, time.UTC))
	s.tick(time.UTC, false)
	if got := runs.Load(); got != 3 {
		t.Fatalf("without seconds: runs = %d, want 3", got)
	}
}

func TestRegisterErrors(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2024, 7, 8, 10, 0, 0, 0, time.UTC)}
	s := newTestService(t, Config{}, clock)

	if err := s.Register("", "* * * * *", noopTask); err == nil {
		t.Fatal("Register with empty id succeeded, want error")
	}
	if err := s.Register("bad", "not a cron", noopTask); err == nil {
		t.Fatal("Register with malformed expression succeeded, want error")
	}
	if s.Repertoire().Len() != 0 {
		t.Fatalf("table size = %d after rejected registrations, want 0", s.Repertoire().Len())
	}

	if err := s.Register("job", "* * * * *", noopTask); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Register("job", "* * * * *", noopTask); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("duplicate Register: got %v, want ErrDuplicateID", err)
	}
}

func TestUpdateSchedule(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2024, 7, 8, 10, 0, 0, 0, time.UTC)}
	s := newTestService(t, Config{}, clock)

	var runs atomic.Int64
	if err := s.Register("job", "0 12 * * *", func(context.Context) error {
		runs.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	if ok, err := s.UpdateSchedule("missing", "* * * * *"); err != nil || ok {
		t.Fatalf("UpdateSchedule(missing) = (%v, %v), want (false, nil)", ok, err)
	}
	if _, err := s.UpdateSchedule("job", "garbage"); err == nil {
		t.Fatal("UpdateSchedule with malformed expression succeeded, want error")
	}

	// The task survives a pattern swap.
	if ok, err := s.UpdateSchedule("job", "0 6 * * *"); err != nil || !ok {
		t.Fatalf("UpdateSchedule(job) = (%v, %v), want (true, nil)", ok, err)
	}
	clock.set(time.Date(2024, 7, 9, 6, 0, 0, 0, time.UTC))
	s.tick(time.UTC, true)
	clock.set(time.Date(2024, 7, 9, 12, 0, 0, 0, time.UTC))
	s.tick(time.UTC, true)
	if got := runs.Load(); got != 1 {
		t.Fatalf("runs = %d after pattern swap, want 1 (new schedule only)", got)
	}
}

func TestExecutionSelfRemoval(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2024, 7, 8, 10, 0, 0, 0, time.UTC)}
	s := newTestService(t, Config{}, clock)

	var seen int
	if err := s.Register("job", "* * * * *", func(context.Context) error {
		// Inline executor: the execution is in the active set while running.
		seen = len(s.Executions())
		return nil
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	s.tick(time.UTC, true)
	if seen != 1 {
		t.Fatalf("active set during run = %d, want 1", seen)
	}
	if got := len(s.Executions()); got != 0 {
		t.Fatalf("active set after run = %d, want 0", got)
	}
}

func TestPanickingTaskIsContained(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2024, 7, 8, 10, 0, 0, 0, time.UTC)}
	s := newTestService(t, Config{}, clock)

	var healthyRuns atomic.Int64
	if err := s.Register("bomb", "* * * * *", func(context.Context) error {
		panic("boom")
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Register("healthy", "* * * * *", func(context.Context) error {
		healthyRuns.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Register: %v", err)
	}

	// Must not propagate out of tick, and must not starve the other entry.
	s.tick(time.UTC, true)
	s.tick(time.UTC, true)

	if got := healthyRuns.Load(); got != 2 {
		t.Fatalf("healthy task ran %d times alongside panicking one, want 2", got)
	}
	if got := len(s.Executions()); got != 0 {
		t.Fatalf("active set = %d after panics, want 0", got)
	}
}

func TestStartStopIdempotent(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2024, 7, 8, 10, 0, 0, 0, time.UTC)}
	s := newTestService(t, Config{TickInterval: time.Hour}, clock)

	if s.Running() {
		t.Fatal("Running before Start")
	}
	s.Start()
	s.Start()
	if !s.Running() {
		t.Fatal("not Running after Start")
	}
	s.Stop()
	s.Stop()
	if s.Running() {
		t.Fatal("Running after Stop")
	}

	// Restartable.
	s.Start()
	if !s.Running() {
		t.Fatal("not Running after restart")
	}
	s.Stop()
}

func TestSnapshot(t *testing.T) {
	t.Parallel()
	clock := &fakeClock{now: time.Date(2024, 7, 8, 10, 0, 0, 0, time.UTC)}
	s := newTestService(t, Config{Timezone: "UTC", MatchSeconds: true}, clock)

	if err := s.Register("a", "0 12 * * *", noopTask); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if err := s.Register("b", "0 9 * * 1-5 | 0 9 * * 6", noopTask); err != nil {
		t.Fatalf("Register: %v", err)
	}

	snap := s.Snapshot()
	if snap.Running {
		t.Fatal("snapshot Running = true for stopped service")
	}
	if !snap.MatchSeconds {
		t.Fatal("snapshot MatchSeconds = false")
	}
	if len(snap.Entries) != 2 {
		t.Fatalf("snapshot entries = %d, want 2", len(snap.Entries))
	}
	if snap.Entries[0].Expression != "0 12 * * *" {
		t.Fatalf("entry expression = %q, want original text", snap.Entries[0].Expression)
	}
	if snap.Entries[1].Alternatives != 2 {
		t.Fatalf("alternatives = %d, want 2", snap.Entries[1].Alternatives)
	}
}
