// Package app assembles the monitor from configuration and owns its
// lifecycle: logging, storage, sources, the notification engine, the poll
// loop, and the HTTP surface, started and stopped in dependency order.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"chatwatch/internal/config"
	"chatwatch/internal/eventbus"
	"chatwatch/internal/keyword"
	"chatwatch/internal/monitor"
	"chatwatch/internal/notify"
	rtsup "chatwatch/internal/runtime/supervisor"
	"chatwatch/internal/source"
	"chatwatch/internal/source/tailer"
	"chatwatch/internal/source/webhook"
	"chatwatch/internal/storage"
	"chatwatch/internal/web"
	logx "chatwatch/pkg/logx"
)

type App struct {
	log  logx.Logger
	logs *logx.Service
	cfgm *config.Manager
	bus  eventbus.Bus

	store  storage.Store
	engine *notify.Engine
	mon    *monitor.Monitor
	web    *web.Server

	sup *rtsup.Supervisor
}

// New loads and validates configuration and brings up logging. Everything
// else is built in Start so a failed boot leaves nothing running.
func New(cfgPath string) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfgm.SetValidator(func(_ context.Context, cfg *config.Config) error {
		return config.Validate(cfg)
	})
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	logs, log := logx.New(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	return &App{
		log:  log,
		logs: logs,
		cfgm: cfgm,
		bus:  eventbus.New(),
	}, nil
}

// Start builds every component from the committed config and launches them
// under one supervisor. A zero source set is a hard error.
func (a *App) Start(ctx context.Context) error {
	cfg := a.cfgm.Get()

	storeCfg, err := mapStorageConfig(cfg)
	if err != nil {
		return err
	}
	store, err := storage.Open(storeCfg, a.log.With(logx.String("comp", "storage")))
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	a.store = store

	sources, webhooks, err := buildSources(cfg)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return monitor.ErrNoSources
	}

	engineCfg, channels, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		return err
	}
	a.engine = notify.NewEngine(engineCfg, channels, a.log.With(logx.String("comp", "notify")), a.bus)

	monCfg, err := mapMonitorConfig(cfg.Monitor)
	if err != nil {
		return err
	}
	a.mon = monitor.New(monCfg, mapKeywordConfig(cfg.Keywords), sources, store, a.engine,
		a.log.With(logx.String("comp", "monitor")), a.bus)

	a.sup = rtsup.New(ctx,
		rtsup.WithLogger(a.log.With(logx.String("comp", "app"))),
		rtsup.WithCancelOnError(true),
	)

	a.sup.Go("config.watch", func(c context.Context) error {
		return a.cfgm.Watch(c)
	})

	updates := a.cfgm.Subscribe(1)
	a.sup.Go0("config.apply", func(c context.Context) {
		defer a.cfgm.Unsubscribe(updates)
		for {
			select {
			case <-c.Done():
				return
			case next, ok := <-updates:
				if !ok {
					return
				}
				a.applyReload(next)
			}
		}
	})

	// The engine runs off a background context so Stop can drain queued
	// alerts after the supervisor is cancelled.
	a.engine.Start(context.Background())

	a.sup.Go("monitor", func(c context.Context) error {
		return a.mon.Run(c)
	})

	if cfg.Web.Enabled {
		a.web = web.New(web.Config{Listen: cfg.Web.Listen},
			func() any { return a.mon.Status() },
			a.engine, webhooks,
			a.log.With(logx.String("comp", "web")), a.bus)
		a.sup.Go("web", func(c context.Context) error {
			return a.web.Run(c)
		})
	}

	// Best-effort; a no-op outside systemd units.
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	a.log.Info("started", logx.Int("sources", len(sources)))
	return nil
}

// Done closes when any supervised component fails.
func (a *App) Done() <-chan struct{} {
	return a.sup.Context().Done()
}

func (a *App) Err() error {
	if a.sup == nil {
		return nil
	}
	err := a.sup.Err()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// Stop winds components down in reverse order: stop intake, drain alerts,
// close the store, flush logs.
func (a *App) Stop(ctx context.Context) error {
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)

	if a.sup != nil {
		a.sup.Cancel()
		wctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		_ = a.sup.Wait(wctx)
		cancel()
	}
	if a.engine != nil {
		dctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		a.engine.Stop(dctx)
		cancel()
	}
	var err error
	if a.store != nil {
		err = a.store.Close()
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
	return err
}

// applyReload pushes a committed config into the hot-reloadable parts:
// logging level/sinks and the notification rule set. Sources, storage, and the
// web listener need a restart.
func (a *App) applyReload(cfg *config.Config) {
	a.logs.Apply(logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	})
	engineCfg, _, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		a.log.Warn("reload skipped for notify", logx.Err(err))
		return
	}
	a.engine.Apply(engineCfg)
	a.log.Info("config reloaded")
}

func buildSources(cfg *config.Config) ([]source.Source, []*webhook.Source, error) {
	var (
		out      []source.Source
		webhooks []*webhook.Source
	)
	for i, wc := range cfg.Sources.Webhook {
		enabled := wc.Enabled == nil || *wc.Enabled
		if !enabled {
			continue
		}
		iv, err := config.ParseDurationOrDefault(
			fmt.Sprintf("sources.webhook[%d].poll_interval", i), wc.PollInterval, 0)
		if err != nil {
			return nil, nil, err
		}
		src := webhook.New(webhook.Config{
			Source: source.Config{
				Name: wc.Name, Platform: wc.Platform,
				Enabled: true, PollInterval: iv,
			},
			Token:     wc.Token,
			QueueSize: wc.QueueSize,
		})
		out = append(out, src)
		webhooks = append(webhooks, src)
	}
	for i, tc := range cfg.Sources.Tail {
		enabled := tc.Enabled == nil || *tc.Enabled
		if !enabled {
			continue
		}
		iv, err := config.ParseDurationOrDefault(
			fmt.Sprintf("sources.tail[%d].poll_interval", i), tc.PollInterval, 0)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, tailer.New(tailer.Config{
			Source: source.Config{
				Name: tc.Name, Platform: tc.Platform,
				Enabled: true, PollInterval: iv,
			},
			Path: tc.Path,
		}))
	}
	return out, webhooks, nil
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	busy, err := config.ParseDurationOrDefault("storage.busy_timeout", cfg.Storage.BusyTimeout, 5*time.Second)
	if err != nil {
		return storage.Config{}, err
	}
	return storage.Config{
		Driver:      cfg.Storage.Driver,
		Path:        cfg.Storage.Path,
		BusyTimeout: busy,
	}, nil
}

func mapMonitorConfig(mc config.MonitorConfig) (monitor.Config, error) {
	tick, err := config.ParseDurationOrDefault("monitor.tick", mc.Tick, 0)
	if err != nil {
		return monitor.Config{}, err
	}
	hb, err := config.ParseDurationOrDefault("monitor.heartbeat", mc.Heartbeat, 0)
	if err != nil {
		return monitor.Config{}, err
	}
	kr, err := config.ParseDurationOrDefault("monitor.keyword_refresh", mc.KeywordRefresh, 0)
	if err != nil {
		return monitor.Config{}, err
	}
	return monitor.Config{Tick: tick, Heartbeat: hb, KeywordRefresh: kr}, nil
}

func mapKeywordConfig(kc config.KeywordsConfig) keyword.Config {
	return keyword.Config{
		Keywords:       kc.List,
		Mode:           keyword.ParseMode(kc.Mode),
		CaseSensitive:  kc.CaseSensitive,
		FuzzyThreshold: kc.FuzzyThreshold,
	}
}
