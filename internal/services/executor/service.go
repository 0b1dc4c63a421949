// Package executor runs submitted units of work on a worker pool.
//
// It is the scheduler's work-submission collaborator: Submit is non-blocking
// and fire-and-forget, workers are panic-safe, and a full queue drops work
// rather than stalling the tick loop.
package executor

import (
	"runtime/debug"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"metronome/pkg/logx"
)

// Config controls the worker pool.
type Config struct {
	Workers   int
	QueueSize int
}

type Service struct {
	mu sync.Mutex

	log logx.Logger
	cfg Config

	queue    chan func()
	stopCh   chan struct{}
	workerWG sync.WaitGroup

	// Lifetime counters for operator diagnostics.
	submitted atomic.Uint64
	dropped   atomic.Uint64

	// dropLimiter throttles queue-full warnings; a stuck consumer would
	// otherwise produce one warning per tick.
	dropLimiter *rate.Limiter
}

// Snapshot is a lightweight diagnostic view.
type Snapshot struct {
	Running   bool
	Workers   int
	QueueLen  int
	QueueCap  int
	Submitted uint64
	Dropped   uint64
}

func New(cfg Config, log logx.Logger) *Service {
	return &Service{
		cfg:         cfg,
		log:         log,
		dropLimiter: rate.NewLimiter(rate.Limit(1), 3),
	}
}

func (s *Service) workers() int {
	if s.cfg.Workers > 0 {
		return s.cfg.Workers
	}
	return 4
}

func (s *Service) queueSize() int {
	if s.cfg.QueueSize > 0 {
		return s.cfg.QueueSize
	}
	return 256
}

// Start launches the worker pool. Starting a running pool is a no-op.
func (s *Service) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopCh != nil {
		return
	}

	s.stopCh = make(chan struct{})
	// Fresh queue per run so a stop/start toggle never executes stale work.
	s.queue = make(chan func(), s.queueSize())

	stopCh := s.stopCh
	queue := s.queue
	workers := s.workers()

	s.workerWG.Add(workers)
	for i := 0; i < workers; i++ {
		idx := i
		go func() {
			defer s.workerWG.Done()
			s.worker(stopCh, queue, idx)
		}()
	}
	s.log.Info("executor started", logx.Int("workers", workers), logx.Int("queue_size", cap(queue)))
}

// Stop signals the workers and waits for them to exit. Work already picked up
// finishes; queued-but-unstarted work is discarded. Idempotent.
func (s *Service) Stop() {
	s.mu.Lock()
	if s.stopCh == nil {
		s.mu.Unlock()
		return
	}
	stopCh := s.stopCh
	s.stopCh = nil
	s.queue = nil
	s.mu.Unlock()

	close(stopCh)
	s.workerWG.Wait()
	s.log.Info("executor stopped")
}

// Submit hands fn to the pool, fire-and-forget. See TrySubmit for the
// error-reporting variant.
func (s *Service) Submit(fn func()) {
	if err := s.TrySubmit(fn); err != nil {
		s.dropped.Add(1)
		if s.dropLimiter.Allow() {
			s.log.Warn("executor dropping work", logx.Err(err), logx.Uint64("dropped", s.dropped.Load()))
		}
	}
}

// TrySubmit enqueues fn without blocking. It fails with ErrStopped when the
// pool is not running and ErrQueueFull when the queue is saturated.
func (s *Service) TrySubmit(fn func()) error {
	if fn == nil {
		return nil
	}
	s.mu.Lock()
	q := s.queue
	s.mu.Unlock()

	if q == nil {
		return ErrStopped
	}
	select {
	case q <- fn:
		s.submitted.Add(1)
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *Service) worker(stopCh <-chan struct{}, queue <-chan func(), idx int) {
	for {
		// Fast-exit check so a closed stopCh wins over queued work.
		select {
		case <-stopCh:
			return
		default:
		}

		select {
		case <-stopCh:
			return
		case fn := <-queue:
			s.runOne(fn, idx)
		}
	}
}

// runOne is the pool's own panic boundary. Execution handles recover their
// task bodies themselves; this guard only protects the worker goroutine from
// misbehaving raw submissions.
func (s *Service) runOne(fn func(), idx int) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("panic in executor worker",
				logx.Int("worker", idx),
				logx.Any("panic", r),
				logx.Stack(string(debug.Stack())))
		}
	}()
	fn()
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	q := s.queue
	running := s.stopCh != nil
	s.mu.Unlock()

	snap := Snapshot{
		Running:   running,
		Workers:   s.workers(),
		Submitted: s.submitted.Load(),
		Dropped:   s.dropped.Load(),
	}
	if q != nil {
		snap.QueueLen = len(q)
		snap.QueueCap = cap(q)
	}
	return snap
}
