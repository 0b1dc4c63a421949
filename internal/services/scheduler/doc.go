// Package scheduler drives metronome's schedule table.
//
// # Overview
//
// The Service owns a Repertoire (the table of id -> (pattern, task) entries)
// and a single background tick goroutine. Roughly once per second the tick
// loop asks the Repertoire which entries match the instant observed at tick
// time, wraps each match in an execution handle, and submits the handle to an
// external Executor for asynchronous running. The scheduler never runs task
// bodies on its own goroutine.
//
// # Guarantees
//
//   - Ticks do not overlap and their instants are non-decreasing (one
//     dedicated goroutine, cooperative stop signal).
//   - Structural table changes (Add/Remove/UpdatePattern) are linearizable
//     with respect to match sweeps: a sweep sees an entry fully or not at all.
//   - A failing or panicking task is contained by its execution handle; it
//     never stops the tick loop or affects other matched entries.
//   - Clock irregularities are tolerated: matching always uses the instant
//     observed at tick time, with no catch-up replay of missed instants.
//
// Stopping the scheduler halts future ticks only; in-flight executions run to
// completion and remove themselves from the active set.
package scheduler
