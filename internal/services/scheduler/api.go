package scheduler

import (
	"errors"
	"strings"

	"metronome/pkg/cronexpr"
	"metronome/pkg/logx"
)

var errEmptyID = errors.New("scheduler: schedule id required")

// Register parses expr and adds (id, pattern, task) to the table. The
// expression's anchor second (5-field form) is taken from the service clock
// at registration time. A malformed expression or duplicate id is returned
// synchronously; nothing is added in either case.
func (s *Service) Register(id, expr string, task Task, opts ...cronexpr.Option) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errEmptyID
	}
	p, err := cronexpr.ParseAt(expr, s.clock.Now(), opts...)
	if err != nil {
		return err
	}
	if err := s.rep.Add(id, p, task); err != nil {
		return err
	}
	s.log.Debug("schedule registered", logx.String("id", id), logx.String("expr", expr))
	return nil
}

// Unregister removes the schedule with the given id; false when absent.
func (s *Service) Unregister(id string) bool {
	removed := s.rep.Remove(id)
	if removed {
		s.log.Debug("schedule removed", logx.String("id", id))
	}
	return removed
}

// UpdateSchedule re-parses expr and swaps the pattern of an existing entry,
// keeping its task. It returns false (and no error) when the id is absent,
// mirroring Unregister; a malformed expression is an error and leaves the
// table untouched.
func (s *Service) UpdateSchedule(id, expr string, opts ...cronexpr.Option) (bool, error) {
	p, err := cronexpr.ParseAt(expr, s.clock.Now(), opts...)
	if err != nil {
		return false, err
	}
	updated := s.rep.UpdatePattern(id, p)
	if updated {
		s.log.Debug("schedule updated", logx.String("id", id), logx.String("expr", expr))
	}
	return updated, nil
}
