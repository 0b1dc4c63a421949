package scheduler

import "time"

// EntryInfo describes one schedule table entry.
type EntryInfo struct {
	ID           string
	Expression   string
	Alternatives int
}

// Snapshot is a point-in-time diagnostic view of the scheduler.
type Snapshot struct {
	Running      bool
	Timezone     string
	MatchSeconds bool
	TickInterval time.Duration
	Entries      []EntryInfo
	Executions   []ExecutionInfo
}

func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	running := s.stopCh != nil
	cfg := s.cfg
	loc := s.loc
	s.mu.Unlock()

	tz := cfg.Timezone
	if tz == "" && loc != nil {
		tz = loc.String()
	}

	var entries []EntryInfo
	for _, p := range s.rep.snapshotEntries() {
		entries = append(entries, EntryInfo{
			ID:           p.ID,
			Expression:   p.Pattern.String(),
			Alternatives: p.Pattern.Alternatives(),
		})
	}

	return Snapshot{
		Running:      running,
		Timezone:     tz,
		MatchSeconds: cfg.MatchSeconds,
		TickInterval: cfg.tickInterval(),
		Entries:      entries,
		Executions:   s.execs.snapshot(),
	}
}
