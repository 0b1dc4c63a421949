package config

// Config is metronome's root configuration.
//
// Files may be JSON or YAML; YAML is coerced to JSON and both go through the
// same strict decoder, so unknown keys are rejected either way. All duration
// fields are Go duration strings (e.g. "500ms", "10s", "1m").
type Config struct {
	Logging   LoggingConfig    `json:"logging"`
	Scheduler SchedulerConfig  `json:"scheduler"`
	Executor  ExecutorConfig   `json:"executor,omitempty"`
	Storage   *StorageConfig   `json:"storage,omitempty"`
	Schedules []ScheduleConfig `json:"schedules"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// SchedulerConfig controls the tick loop.
type SchedulerConfig struct {
	// Timezone is an IANA TZ name, e.g. "Asia/Jakarta". Empty means Local.
	Timezone string `json:"timezone,omitempty"`
	// MatchSeconds enables the seconds field during match sweeps.
	MatchSeconds bool `json:"match_seconds,omitempty"`
	// TickInterval defaults to "1s". Mainly a test knob.
	TickInterval string `json:"tick_interval,omitempty"`
}

// ExecutorConfig controls the worker pool running task bodies.
//
// Defaults (when fields are omitted/zero): workers 4, queue_size 256.
type ExecutorConfig struct {
	Workers   int `json:"workers,omitempty"`
	QueueSize int `json:"queue_size,omitempty"`
}

// StorageConfig controls the optional execution-history store.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./metronome.db" }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
}

// ScheduleConfig declares one schedule table entry: a unique id, a cron
// expression (5-7 fields, "|"-joined alternatives) and the shell command the
// entry runs when it matches.
type ScheduleConfig struct {
	ID         string `json:"id"`
	Expression string `json:"expression"`
	Command    string `json:"command"`
	Dir        string `json:"dir,omitempty"`
}
