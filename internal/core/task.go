package core

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"metronome/internal/config"
	"metronome/internal/services/scheduler"
)

// commandTask wraps one configured shell command as a scheduler task.
// Output is captured and only surfaces on failure; a cron daemon that
// re-logs every command's stdout drowns its own logs.
func commandTask(sc config.ScheduleConfig) scheduler.Task {
	command := sc.Command
	dir := sc.Dir
	return func(ctx context.Context) error {
		cmd := exec.CommandContext(ctx, "/bin/sh", "-c", command)
		if dir != "" {
			cmd.Dir = dir
		}
		var out bytes.Buffer
		cmd.Stdout = &out
		cmd.Stderr = &out
		if err := cmd.Run(); err != nil {
			msg := strings.TrimSpace(out.String())
			if msg != "" {
				return fmt.Errorf("%w: %s", err, truncate(msg, 1024))
			}
			return err
		}
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
