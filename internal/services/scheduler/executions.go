package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sort"
	"sync"
	"time"

	"metronome/internal/eventbus"
	"metronome/pkg/logx"
)

// ExecutionID identifies one dispatched task instance.
type ExecutionID uint64

// ExecutionInfo is a read-only view of one in-flight execution.
type ExecutionInfo struct {
	ID         ExecutionID
	TaskID     string
	Expression string
	Started    time.Time
}

// ExecutionEvent is the event bus payload for execution lifecycle events
// (exec.started, exec.finished, exec.failed).
type ExecutionEvent struct {
	ExecID     ExecutionID   `json:"exec_id"`
	TaskID     string        `json:"task_id"`
	Expression string        `json:"expression"`
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration"`
	Error      string        `json:"error,omitempty"`
}

type execution struct {
	id      ExecutionID
	entry   Entry
	started time.Time
}

// executionSet is the Execution Manager's active set. Its only invariant is
// consistent membership, so a plain mutex suffices; it never shares the
// Repertoire's read/write lock.
type executionSet struct {
	mu     sync.Mutex
	seq    ExecutionID
	active map[ExecutionID]*execution
}

func newExecutionSet() *executionSet {
	return &executionSet{active: map[ExecutionID]*execution{}}
}

func (s *executionSet) add(e Entry, started time.Time) *execution {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	ex := &execution{id: s.seq, entry: e, started: started}
	s.active[ex.id] = ex
	return ex
}

// remove is idempotent; executions call it on themselves when done.
func (s *executionSet) remove(id ExecutionID) {
	s.mu.Lock()
	delete(s.active, id)
	s.mu.Unlock()
}

func (s *executionSet) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// snapshot returns a stable copy, safe to iterate while executions complete
// and remove themselves concurrently.
func (s *executionSet) snapshot() []ExecutionInfo {
	s.mu.Lock()
	infos := make([]ExecutionInfo, 0, len(s.active))
	for _, ex := range s.active {
		infos = append(infos, ExecutionInfo{
			ID:         ex.id,
			TaskID:     ex.entry.ID,
			Expression: ex.entry.Pattern.String(),
			Started:    ex.started,
		})
	}
	s.mu.Unlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

// spawn wraps one matched entry in an execution handle, registers it in the
// active set, and hands it to the external executor. The handle removes
// itself when the task body returns or panics; neither outcome reaches the
// tick loop.
func (s *Service) spawn(e Entry, now time.Time) {
	ex := s.execs.add(e, now)
	s.publish(eventbus.Event{Type: EventExecStarted, Time: now, Data: ExecutionEvent{
		ExecID: ex.id, TaskID: e.ID, Expression: e.Pattern.String(), Started: ex.started,
	}})

	s.exec.Submit(func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic: %v", r)
				s.log.Error("task panicked",
					logx.String("task", e.ID),
					logx.Uint64("exec_id", uint64(ex.id)),
					logx.Any("panic", r),
					logx.Stack(string(debug.Stack())))
			}
			s.execs.remove(ex.id)
			s.finish(ex, err)
		}()
		// Stop() does not cancel in-flight executions, so tasks get a
		// context detached from the scheduler lifecycle.
		err = e.Task(context.Background())
	})
}

func (s *Service) finish(ex *execution, err error) {
	dur := time.Since(ex.started)
	ev := ExecutionEvent{
		ExecID:     ex.id,
		TaskID:     ex.entry.ID,
		Expression: ex.entry.Pattern.String(),
		Started:    ex.started,
		Duration:   dur,
	}
	if err != nil {
		ev.Error = err.Error()
		s.log.Warn("task failed", logx.String("task", ex.entry.ID), logx.Uint64("exec_id", uint64(ex.id)), logx.Duration("dur", dur), logx.Err(err))
		s.publish(eventbus.Event{Type: EventExecFailed, Time: time.Now(), Data: ev})
		return
	}
	s.log.Debug("task completed", logx.String("task", ex.entry.ID), logx.Uint64("exec_id", uint64(ex.id)), logx.Duration("dur", dur))
	s.publish(eventbus.Event{Type: EventExecFinished, Time: time.Now(), Data: ev})
}
