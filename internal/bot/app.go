package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"tickbot/internal/config"
	"tickbot/internal/notifier"
	rtsup "tickbot/internal/runtime/supervisor"
	"tickbot/internal/sched"
	"tickbot/internal/storage"
	kit "tickbot/internal/transport"
	"tickbot/internal/transport/telegram"
	logx "tickbot/pkg/logx"
)

const (
	defaultFastPath = time.Minute
	updateBuffer    = 64
)

// App assembles the whole bot: config, logging, storage, the Telegram
// adapter, two scheduler instances (reminders and watch parties) sharing
// one events table, the notifier and the janitor.
type App struct {
	manager *config.Manager
	logsvc  *logx.Service
	log     logx.Logger

	db         *storage.DB
	adapter    *telegram.Adapter
	notify     *notifier.Service
	reminders  *sched.Service
	parties    *sched.Service
	remStore   *storage.EventStore
	partyStore *storage.EventStore
	jan        *janitor

	now func() time.Time

	mu       sync.Mutex
	fastPath time.Duration

	sup     *rtsup.Supervisor
	updates chan kit.Update
}

func New(cfgPath string) (*App, error) {
	manager := config.NewManager(cfgPath)
	manager.SetValidator(validateConfig)
	cfg, err := manager.Load()
	if err != nil {
		return nil, err
	}
	if err := validateConfig(context.Background(), cfg); err != nil {
		return nil, err
	}

	logsvc, log, err := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	if err != nil {
		return nil, err
	}
	manager.SetLogger(log.With(logx.String("comp", "config")))

	a := &App{
		manager: manager,
		logsvc:  logsvc,
		log:     log.With(logx.String("comp", "bot")),
		now:     time.Now,
	}

	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		logsvc.Close()
		return nil, err
	}
	db, err := storage.Open(storage.Config{Path: cfg.Storage.Path, BusyTimeout: busy},
		log.With(logx.String("comp", "storage")))
	if err != nil {
		logsvc.Close()
		return nil, err
	}
	a.db = db
	a.remStore = db.Events("reminder")
	a.partyStore = db.Events("party")

	pollTimeout, err := config.ParseDurationOrDefault("telegram.poll_timeout", cfg.Telegram.PollTimeout, 10*time.Second)
	if err != nil {
		a.closeBase()
		return nil, err
	}
	adapter, err := telegram.New(telegram.Config{
		Token:       cfg.Telegram.Token,
		PollTimeout: pollTimeout,
	}, log)
	if err != nil {
		a.closeBase()
		return nil, err
	}
	a.adapter = adapter

	a.notify = notifier.New(notifier.Config{RatePerSec: cfg.Notifier.RatePerSec}, adapter, log)

	remCfg, err := schedConfig("reminders", cfg.Reminders)
	if err != nil {
		a.closeBase()
		return nil, err
	}
	partyCfg, err := schedConfig("parties", cfg.Parties)
	if err != nil {
		a.closeBase()
		return nil, err
	}
	a.reminders = sched.New(remCfg, a.remStore, &reminderSender{notify: a.notify, log: log}, log)
	a.parties = sched.New(partyCfg, a.partyStore, &partySender{notify: a.notify, log: log}, log)
	a.fastPath = fastPathOf(cfg.Reminders)

	a.jan = newJanitor(adapter, []janitorTarget{
		{name: "reminder", svc: a.reminders, store: a.remStore},
		{name: "party", svc: a.parties, store: a.partyStore},
	}, log)

	manager.OnChange(a.applyConfig)
	return a, nil
}

func validateConfig(_ context.Context, cfg *config.Config) error {
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		return errors.New("telegram.token is required")
	}
	if strings.TrimSpace(cfg.Storage.Path) == "" {
		return errors.New("storage.path is required")
	}
	if _, err := schedConfig("reminders", cfg.Reminders); err != nil {
		return err
	}
	if _, err := schedConfig("parties", cfg.Parties); err != nil {
		return err
	}
	return nil
}

func schedConfig(name string, sc config.SchedulerConfig) (sched.Config, error) {
	stale, err := config.ParseDurationOrDefault(name+".max_staleness", sc.MaxStaleness, 0)
	if err != nil {
		return sched.Config{}, err
	}
	if _, err := config.ParseDurationOrDefault(name+".fast_path", sc.FastPath, defaultFastPath); err != nil {
		return sched.Config{}, err
	}
	return sched.Config{Name: name, MaxStaleness: stale}, nil
}

// fastPathOf keeps "0s" distinct from an absent value: an explicit zero
// disables the fast path, only an unset field gets the default.
func fastPathOf(sc config.SchedulerConfig) time.Duration {
	if strings.TrimSpace(sc.FastPath) == "" {
		return defaultFastPath
	}
	d, err := config.ParseDurationField("reminders.fast_path", sc.FastPath)
	if err != nil {
		return defaultFastPath
	}
	return d
}

// applyConfig propagates a hot-reloaded config to the running services.
// Token, storage path and poll timeout changes need a process restart.
func (a *App) applyConfig(cfg *config.Config) {
	if err := a.logsvc.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}); err != nil {
		a.log.Error("apply logging config", logx.Err(err))
	}

	if c, err := schedConfig("reminders", cfg.Reminders); err == nil {
		a.reminders.Apply(c)
	}
	if c, err := schedConfig("parties", cfg.Parties); err == nil {
		a.parties.Apply(c)
	}
	a.notify.Apply(notifier.Config{RatePerSec: cfg.Notifier.RatePerSec})

	a.mu.Lock()
	a.fastPath = fastPathOf(cfg.Reminders)
	a.mu.Unlock()

	a.log.Info("configuration reloaded")
}

func (a *App) fastPathWindow() time.Duration {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.fastPath
}

func (a *App) Start(ctx context.Context) error {
	a.sup = rtsup.New(ctx,
		rtsup.WithLogger(a.log),
		rtsup.WithCancelOnError(false),
	)

	a.updates = make(chan kit.Update, updateBuffer)
	if err := a.adapter.Start(a.sup.Context(), a.updates); err != nil {
		return fmt.Errorf("start telegram adapter: %w", err)
	}

	a.sup.Go0("updates.pump", func(c context.Context) {
		for {
			select {
			case <-c.Done():
				return
			case up := <-a.updates:
				if up.Message == nil {
					continue
				}
				a.dispatch(c, up.Message)
			}
		}
	})

	a.reminders.Start(a.sup.Context())
	a.parties.Start(a.sup.Context())

	cfg := a.manager.Get()
	if cfg.Janitor.Enabled {
		if err := a.jan.Start(a.sup.Context(), cfg.Janitor.Schedule); err != nil {
			return err
		}
	}

	a.sup.GoRestart("config.watch", func(c context.Context) error {
		return a.manager.Watch(c)
	}, rtsup.WithRestartBackoff(time.Second, 30*time.Second))

	a.log.Info("bot started")
	return nil
}

func (a *App) Stop(ctx context.Context) {
	a.jan.Stop()
	if a.adapter != nil {
		_ = a.adapter.Stop(ctx)
	}
	if a.reminders != nil {
		a.reminders.Stop(ctx)
	}
	if a.parties != nil {
		a.parties.Stop(ctx)
	}
	if a.sup != nil {
		a.sup.Cancel()
		_ = a.sup.Wait(ctx)
	}
	a.log.Info("bot stopped")
	a.closeBase()
}

func (a *App) closeBase() {
	if a.db != nil {
		_ = a.db.Close()
	}
	if a.logsvc != nil {
		a.logsvc.Close()
	}
}
