package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"metronome/pkg/logx"
)

// debounceWindow coalesces the burst of write/rename events most editors
// produce for a single save.
const debounceWindow = 250 * time.Millisecond

// Watch follows the config file until ctx is done, re-parsing on change.
// A change is committed and published to subscribers only when it parses,
// passes validation and actually differs from the committed content; a broken
// edit is logged and the previous config stays in effect.
//
// The parent directory is watched rather than the file itself, so atomic
// save strategies (write temp + rename) keep working.
func (m *Manager) Watch(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(m.path)
	if err := w.Add(dir); err != nil {
		return err
	}
	base := filepath.Base(m.path)
	m.log.Debug("config watch started", logx.String("dir", dir), logx.String("file", base))

	var debounce *time.Timer
	var debounceC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Base(ev.Name) != base {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceWindow)
			} else {
				if !debounce.Stop() {
					select {
					case <-debounce.C:
					default:
					}
				}
				debounce.Reset(debounceWindow)
			}
			debounceC = debounce.C

		case <-debounceC:
			debounceC = nil
			m.reload(ctx)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			m.log.Warn("config watch error", logx.Err(err))
		}
	}
}

func (m *Manager) reload(ctx context.Context) {
	cfg, err := m.Parse()
	if err != nil {
		m.log.Warn("config reload: parse failed; keeping previous config", logx.Err(err))
		return
	}
	if m.validator != nil {
		if err := m.validator(ctx, cfg); err != nil {
			m.log.Warn("config reload: validation failed; keeping previous config", logx.Err(err))
			return
		}
	}

	m.mu.Lock()
	changed := hashConfig(cfg) != m.lastHash
	m.mu.Unlock()
	if !changed {
		m.log.Debug("config reload: no content change")
		return
	}

	m.Commit(cfg)
	m.publish(cfg)
	m.log.Info("config reloaded")
}
