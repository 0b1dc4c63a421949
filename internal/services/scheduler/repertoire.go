package scheduler

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"metronome/pkg/cronexpr"
)

// ErrDuplicateID is returned by Repertoire.Add when the id is already taken.
var ErrDuplicateID = errors.New("scheduler: duplicate schedule id")

// Entry is one (id, pattern, task) triple of the schedule table.
type Entry struct {
	ID      string
	Pattern *cronexpr.Pattern
	Task    Task
}

// Repertoire is the thread-safe, ordered schedule table.
//
// Entries live in insertion order in a single slice with an id index map, so
// there are no parallel lists to keep aligned. Structural mutations take the
// write lock; match sweeps take the read lock, which lets sweeps proceed
// concurrently while excluding half-constructed entries by construction.
type Repertoire struct {
	mu      sync.RWMutex
	entries []Entry
	index   map[string]int
}

func NewRepertoire() *Repertoire {
	return &Repertoire{index: map[string]int{}}
}

// Add appends a new entry. Adding an id that is already present fails with
// ErrDuplicateID and leaves the table unchanged.
func (r *Repertoire) Add(id string, pattern *cronexpr.Pattern, task Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.index[id]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	r.index[id] = len(r.entries)
	r.entries = append(r.entries, Entry{ID: id, Pattern: pattern, Task: task})
	return nil
}

// Remove deletes the entry with the given id. Removing an absent id is an
// idempotent no-op reported as false.
func (r *Repertoire) Remove(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, exists := r.index[id]
	if !exists {
		return false
	}
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	delete(r.index, id)
	for j := i; j < len(r.entries); j++ {
		r.index[r.entries[j].ID] = j
	}
	return true
}

// UpdatePattern replaces the pattern of an existing entry, keeping its task
// and table position. Same absent-id semantics as Remove.
func (r *Repertoire) UpdatePattern(id string, pattern *cronexpr.Pattern) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, exists := r.index[id]
	if !exists {
		return false
	}
	r.entries[i].Pattern = pattern
	return true
}

func (r *Repertoire) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// IDs returns the table's ids in insertion order.
func (r *Repertoire) IDs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, len(r.entries))
	for i, e := range r.entries {
		ids[i] = e.ID
	}
	return ids
}

// Patterns returns a snapshot of the table's patterns in insertion order.
func (r *Repertoire) Patterns() []*cronexpr.Pattern {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ps := make([]*cronexpr.Pattern, len(r.entries))
	for i, e := range r.entries {
		ps[i] = e.Pattern
	}
	return ps
}

// Tasks returns a snapshot of the table's tasks in insertion order.
func (r *Repertoire) Tasks() []Task {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ts := make([]Task, len(r.entries))
	for i, e := range r.entries {
		ts[i] = e.Task
	}
	return ts
}

// snapshotEntries copies the table in insertion order.
func (r *Repertoire) snapshotEntries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// Matches returns, in table order, every entry whose pattern matches t.
// Entries at different ids may match the same instant independently; no
// deduplication happens here. Dispatch is the caller's concern, which keeps
// match logic testable without any executor wired in.
func (r *Repertoire) Matches(t time.Time, matchSeconds bool) []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []Entry
	for _, e := range r.entries {
		if e.Pattern.Matches(t, matchSeconds) {
			matched = append(matched, e)
		}
	}
	return matched
}
