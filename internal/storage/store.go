// Package storage persists execution outcomes for operator diagnostics.
//
// The schedule table itself is deliberately not persisted; only the history
// of completed executions is.
package storage

import (
	"context"
	"errors"
	"time"

	"metronome/pkg/logx"
)

var ErrDisabled = errors.New("storage disabled")

// Config selects and tunes the store backend.
type Config struct {
	Driver      string // "", "none" or "sqlite"
	Path        string
	BusyTimeout time.Duration
}

// ExecutionRecord is one completed (or failed) execution.
type ExecutionRecord struct {
	ExecID     uint64
	TaskID     string
	Expression string
	Started    time.Time
	Duration   time.Duration
	Error      string
}

type Store interface {
	AppendExecution(ctx context.Context, rec ExecutionRecord) error
	RecentExecutions(ctx context.Context, limit int) ([]ExecutionRecord, error)
	Close() error
}

// Open returns the configured store. An empty or "none" driver yields a
// no-op store so callers never branch on nil.
func Open(cfg Config, log logx.Logger) (Store, error) {
	switch cfg.Driver {
	case "", "none":
		return nopStore{}, nil
	case "sqlite":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("storage: unknown driver " + cfg.Driver)
	}
}

type nopStore struct{}

func (nopStore) AppendExecution(context.Context, ExecutionRecord) error { return nil }
func (nopStore) RecentExecutions(context.Context, int) ([]ExecutionRecord, error) {
	return nil, nil
}
func (nopStore) Close() error { return nil }
