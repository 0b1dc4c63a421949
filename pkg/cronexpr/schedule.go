package cronexpr

import (
	"time"

	"github.com/robfig/cron/v3"
)

// scheduleHorizon bounds the forward scan in Next. Patterns that cannot fire
// within it (e.g. an exhausted year field) report the zero time, matching the
// robfig/cron convention for unsatisfiable schedules.
const scheduleHorizon = 5 * 365 * 24 * time.Hour

// Schedule adapts a Pattern to robfig/cron's Schedule interface so patterns
// can drive hosts built around "next activation" semantics.
//
// Next works by forward scan at whole-second resolution: minutes that fail
// the minute-level fields are skipped in one step, seconds are only probed
// inside matching minutes.
type Schedule struct {
	p            *Pattern
	matchSeconds bool
}

var _ cron.Schedule = (*Schedule)(nil)

// Schedule wraps the pattern for use as a cron.Schedule.
func (p *Pattern) Schedule(matchSeconds bool) *Schedule {
	return &Schedule{p: p, matchSeconds: matchSeconds}
}

// Next returns the first instant strictly after t that matches the pattern,
// or the zero time if none exists within the scan horizon.
func (s *Schedule) Next(t time.Time) time.Time {
	cur := t.Truncate(time.Second).Add(time.Second)
	limit := cur.Add(scheduleHorizon)

	for cur.Before(limit) {
		if !s.p.Matches(cur, false) {
			cur = cur.Truncate(time.Minute).Add(time.Minute)
			continue
		}
		if !s.matchSeconds {
			return cur
		}
		// Minute-level fields match; probe the remaining seconds.
		minuteEnd := cur.Truncate(time.Minute).Add(time.Minute)
		for cur.Before(minuteEnd) {
			if s.p.Matches(cur, true) {
				return cur
			}
			cur = cur.Add(time.Second)
		}
	}
	return time.Time{}
}
