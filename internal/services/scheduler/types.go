package scheduler

import (
	"context"
	"time"
)

// Config controls the scheduler service.
type Config struct {
	// Timezone is an IANA TZ name, e.g. "Asia/Jakarta". Empty means Local.
	Timezone string
	// MatchSeconds enables the seconds field during match sweeps. When off,
	// a pattern matches once per second throughout its matching minute.
	MatchSeconds bool
	// TickInterval is the nominal tick period. Zero means one second.
	// Shorter intervals are mainly useful in tests.
	TickInterval time.Duration
}

func (c Config) tickInterval() time.Duration {
	if c.TickInterval > 0 {
		return c.TickInterval
	}
	return time.Second
}

// Task is one schedulable unit of work. The returned error is the task's only
// observable outcome; it is reported on the event bus and never reaches the
// tick loop. Panics are contained the same way.
type Task func(ctx context.Context) error

// Executor is the external work-submission collaborator. Submit hands over a
// unit of work for asynchronous execution, fire-and-forget.
type Executor interface {
	Submit(fn func())
}

// Clock supplies "now" to the tick loop and to pattern registration (the
// anchor second of 5-field expressions). Injected for deterministic tests.
type Clock interface {
	Now() time.Time
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }
