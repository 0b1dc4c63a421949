package core

import (
	"context"
	"sync"
	"time"

	"metronome/internal/config"
	"metronome/internal/eventbus"
	"metronome/internal/services/executor"
	"metronome/internal/services/scheduler"
	"metronome/internal/storage"
	"metronome/pkg/logx"
)

// App wires config, logging, storage, the executor pool and the scheduler
// into one process.
type App struct {
	cfgm *config.Manager
	logs *logx.Service
	log  logx.Logger

	bus   eventbus.Bus
	store storage.Store
	exec  *executor.Service
	sched *scheduler.Service

	// schedules tracks what is currently registered, keyed by id, so config
	// reloads can diff against it.
	schedules map[string]config.ScheduleConfig

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewApp(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load(context.Background())
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	bus := eventbus.New()

	storeCfg := storage.Config{}
	if cfg.Storage != nil {
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
		if err != nil {
			return nil, err
		}
		storeCfg = storage.Config{Driver: cfg.Storage.Driver, Path: cfg.Storage.Path, BusyTimeout: busy}
	}
	store, err := storage.Open(storeCfg, log.With(logx.String("comp", "storage")))
	if err != nil {
		return nil, err
	}

	exec := executor.New(executor.Config{
		Workers:   cfg.Executor.Workers,
		QueueSize: cfg.Executor.QueueSize,
	}, log.With(logx.String("comp", "executor")))

	tick, err := config.ParseDurationField("scheduler.tick_interval", cfg.Scheduler.TickInterval)
	if err != nil {
		return nil, err
	}
	sched := scheduler.New(scheduler.Config{
		Timezone:     cfg.Scheduler.Timezone,
		MatchSeconds: cfg.Scheduler.MatchSeconds,
		TickInterval: tick,
	}, log.With(logx.String("comp", "scheduler")), exec, scheduler.WithBus(bus))

	return &App{
		cfgm:      cfgm,
		logs:      logSvc,
		log:       log.With(logx.String("comp", "app")),
		bus:       bus,
		store:     store,
		exec:      exec,
		sched:     sched,
		schedules: map[string]config.ScheduleConfig{},
	}, nil
}

// Scheduler exposes the scheduler service (diagnostics, tests).
func (a *App) Scheduler() *scheduler.Service { return a.sched }

func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	rec := storage.NewRecorder(a.store, a.bus, a.log.With(logx.String("comp", "recorder")))
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		rec.Run(runCtx)
	}()

	a.exec.Start()

	if err := a.registerSchedules(a.cfgm.Get()); err != nil {
		return err
	}
	a.sched.Start()

	// Config hot reload: watcher publishes validated configs, the apply loop
	// consumes them.
	updates := a.cfgm.Subscribe(2)
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer a.cfgm.Unsubscribe(updates)
		for {
			select {
			case <-runCtx.Done():
				return
			case cfg, ok := <-updates:
				if !ok {
					return
				}
				a.applyConfig(cfg)
			}
		}
	}()
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		if err := a.cfgm.Watch(runCtx); err != nil && runCtx.Err() == nil {
			a.log.Warn("config watcher exited", logx.Err(err))
		}
	}()

	a.log.Info("metronome started", logx.Int("schedules", len(a.schedules)))
	return nil
}

func (a *App) Stop(ctx context.Context) error {
	a.sched.Stop()
	a.exec.Stop()
	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
	}

	_ = a.store.Close()
	a.log.Info("metronome stopped")
	_ = a.logs.Close()
	return nil
}

func (a *App) registerSchedules(cfg *config.Config) error {
	if cfg == nil {
		return nil
	}
	for _, sc := range cfg.Schedules {
		if err := a.sched.Register(sc.ID, sc.Expression, commandTask(sc)); err != nil {
			return err
		}
		a.schedules[sc.ID] = sc
	}
	return nil
}

// applyConfig applies a reloaded config: logging settings swap in place and
// the schedule table is diffed by id. A changed expression with an unchanged
// command goes through UpdateSchedule (the task keeps running executions);
// a changed command replaces the whole entry.
func (a *App) applyConfig(cfg *config.Config) {
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})

	desired := map[string]config.ScheduleConfig{}
	for _, sc := range cfg.Schedules {
		desired[sc.ID] = sc
	}

	for id := range a.schedules {
		if _, keep := desired[id]; !keep {
			a.sched.Unregister(id)
			delete(a.schedules, id)
		}
	}

	for id, sc := range desired {
		prev, exists := a.schedules[id]
		switch {
		case !exists:
			if err := a.sched.Register(id, sc.Expression, commandTask(sc)); err != nil {
				a.log.Warn("reload: schedule rejected", logx.String("id", id), logx.Err(err))
				continue
			}
		case prev.Command != sc.Command || prev.Dir != sc.Dir:
			a.sched.Unregister(id)
			if err := a.sched.Register(id, sc.Expression, commandTask(sc)); err != nil {
				a.log.Warn("reload: schedule rejected", logx.String("id", id), logx.Err(err))
				delete(a.schedules, id)
				continue
			}
		case prev.Expression != sc.Expression:
			if _, err := a.sched.UpdateSchedule(id, sc.Expression); err != nil {
				a.log.Warn("reload: schedule update rejected", logx.String("id", id), logx.Err(err))
				continue
			}
		}
		a.schedules[id] = sc
	}

	a.log.Info("config applied", logx.Int("schedules", len(a.schedules)))
}
