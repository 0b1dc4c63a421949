package scheduler

import (
	"strings"
	"sync"
	"time"

	"metronome/internal/eventbus"
	"metronome/pkg/logx"
)

// Event bus types published by the scheduler.
const (
	EventExecStarted  = "exec.started"
	EventExecFinished = "exec.finished"
	EventExecFailed   = "exec.failed"
)

// Service is the scheduler core: a two-state (stopped/running) machine owning
// the Repertoire, the tick loop and the execution active set.
type Service struct {
	mu sync.Mutex

	cfg   Config
	log   logx.Logger
	bus   eventbus.Bus
	clock Clock
	exec  Executor

	rep   *Repertoire
	execs *executionSet

	loc *time.Location

	// stopCh is non-nil exactly while running; doneCh closes when the tick
	// goroutine has fully exited.
	stopCh chan struct{}
	doneCh chan struct{}
}

// Option customizes a Service at construction time.
type Option func(*Service)

// WithClock injects an alternative time source (fixed or stepped in tests).
func WithClock(c Clock) Option {
	return func(s *Service) { s.clock = c }
}

// WithBus attaches an event bus for execution lifecycle events.
func WithBus(b eventbus.Bus) Option {
	return func(s *Service) { s.bus = b }
}

func New(cfg Config, log logx.Logger, exec Executor, opts ...Option) *Service {
	s := &Service{
		cfg:   cfg,
		log:   log,
		clock: RealClock{},
		exec:  exec,
		rep:   NewRepertoire(),
		execs: newExecutionSet(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Repertoire exposes the schedule table for direct manipulation and tests.
func (s *Service) Repertoire() *Repertoire { return s.rep }

// Running reports whether the tick loop is active.
func (s *Service) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopCh != nil
}

// Start transitions stopped -> running and launches the tick goroutine.
// Starting a running scheduler is a no-op.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}

	s.loc = s.loadLocationLocked()
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	interval := s.cfg.tickInterval()
	go s.tickLoop(s.stopCh, s.doneCh, interval, s.loc, s.cfg.MatchSeconds)

	s.log.Info("scheduler started",
		logx.String("tz", s.loc.String()),
		logx.Bool("match_seconds", s.cfg.MatchSeconds),
		logx.Duration("tick", interval))
}

// Stop transitions running -> stopped. A tick already in progress finishes;
// in-flight executions are not cancelled. Stopping a stopped scheduler is a
// no-op.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh == nil {
		return
	}
	close(s.stopCh)
	<-s.doneCh
	s.stopCh = nil
	s.doneCh = nil
	s.log.Info("scheduler stopped")
}

// tickLoop is the only goroutine that decides what matches. Loop parameters
// are captured at Start so the loop never touches mutable Service state.
func (s *Service) tickLoop(stopCh <-chan struct{}, doneCh chan<- struct{}, interval time.Duration, loc *time.Location, matchSeconds bool) {
	defer close(doneCh)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			// A closed stopCh wins over a pending tick.
			select {
			case <-stopCh:
				return
			default:
			}
			s.tick(loc, matchSeconds)
		}
	}
}

// tick evaluates one instant against the whole table and dispatches matches.
// Exposed to tests via direct calls with a stepped clock.
func (s *Service) tick(loc *time.Location, matchSeconds bool) {
	now := s.clock.Now().In(loc)
	matched := s.rep.Matches(now, matchSeconds)
	if len(matched) == 0 {
		return
	}
	s.log.Debug("tick matched", logx.Time("at", now), logx.Int("count", len(matched)))
	for _, e := range matched {
		s.spawn(e, now)
	}
}

// Executions returns a stable snapshot of the in-flight execution handles.
func (s *Service) Executions() []ExecutionInfo {
	return s.execs.snapshot()
}

func (s *Service) publish(e eventbus.Event) {
	if s.bus != nil {
		s.bus.Publish(e)
	}
}

func (s *Service) loadLocationLocked() *time.Location {
	tz := strings.TrimSpace(s.cfg.Timezone)
	if tz == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		s.log.Warn("invalid timezone; falling back to Local", logx.String("tz", tz), logx.Err(err))
		return time.Local
	}
	return loc
}
