package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"github.com/prometheus/client_golang/prometheus"
	"golang.design/x/hotkey"

	"github.com/borgmon/meetalert/pkg/engine"
	"github.com/borgmon/meetalert/pkg/logging"
	"github.com/borgmon/meetalert/pkg/metrics"
	"github.com/borgmon/meetalert/pkg/models"
	"github.com/borgmon/meetalert/pkg/platform"
	"github.com/borgmon/meetalert/pkg/store"
)

const appID = "com.borgmon.meetalert"

// MeetAlert is the desktop host: it owns the fyne app and presents what the
// engine decides.
type MeetAlert struct {
	app       fyne.App
	config    *models.Config
	log       logging.Logger
	engine    *engine.Engine
	dashboard *Dashboard
	alert     *AlertWindow // main thread only
	shortcut  *hotkey.Hotkey
	metrics   *http.Server
	cancel    context.CancelFunc
}

func runDesktop(opts *rootOptions) error {
	ma := &MeetAlert{app: app.NewWithID(appID)}
	if err := ma.initialize(opts); err != nil {
		return err
	}
	ma.run()
	return nil
}

func (ma *MeetAlert) initialize(opts *rootOptions) error {
	cfg, err := resolveConfig(opts, store.NewConfigStore(ma.app))
	if err != nil {
		return err
	}
	ma.config = cfg
	ma.log = opts.logger(cfg, os.Stderr)

	// Sync autostart state with config on startup
	if err := setupAutostart(cfg.AutoStart, ma.log); err != nil {
		ma.log.Warn("failed to setup autostart", logging.Err(err))
	}

	source, err := opts.newSource(cfg, ma.log)
	if err != nil {
		return fmt.Errorf("calendar sources: %w", err)
	}

	var sink metrics.Sink = metrics.NoopSink{}
	if cfg.MetricsListen != "" {
		reg := prometheus.NewRegistry()
		sink = metrics.NewPrometheusSink(reg, ma.log)
		ma.metrics = startMetricsServer(cfg.MetricsListen, reg, ma.log)
	}

	ma.engine = engine.New(engine.ConfigFrom(cfg), source, ma,
		engine.WithLogger(ma.log.With(logging.F("component", "engine"))),
		engine.WithMetrics(sink),
	)
	ma.dashboard = NewDashboard(ma.app, ma.engine)
	ma.engine.Subscribe(ma.onEngineEvent)

	ma.setupSystemTray()
	if cfg.Hotkey {
		ma.registerShortcut()
	}

	if cfg.NeedsConfiguration() {
		path, _ := opts.resolvedConfigPath()
		ma.log.Warn("no calendar sources configured", logging.F("config", path))
	}
	return nil
}

// resolveConfig picks the settings for the desktop app. An explicit --config
// file always wins and reseeds the preferences; otherwise the preferences
// are used once seeded from the default config file.
func resolveConfig(opts *rootOptions, prefs *store.ConfigStore) (*models.Config, error) {
	if opts.configPath == "" && prefs.Seeded() {
		return prefs.Load(), nil
	}
	cfg, err := opts.loadConfig()
	if err != nil {
		return nil, err
	}
	prefs.Save(cfg)
	return cfg, nil
}

func (ma *MeetAlert) run() {
	ctx, cancel := context.WithCancel(context.Background())
	ma.cancel = cancel

	ma.app.Lifecycle().SetOnStarted(func() {
		platform.UseAccessoryPolicy()
		ma.dashboard.Show()

		go func() {
			err := ma.engine.Run(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				ma.log.Error("engine stopped", logging.Err(err))
				fyne.Do(ma.quit)
			}
		}()
	})
	ma.app.Run()
}

// onEngineEvent runs on the engine goroutine and hands the snapshot to the
// main thread.
func (ma *MeetAlert) onEngineEvent(ev engine.Event) {
	snap := ev.Snapshot
	fyne.Do(func() {
		ma.dashboard.Update(snap)
		if ma.alert != nil {
			ma.alert.Update(snap)
		}
		if ev.Kind == engine.EventAgendaChanged {
			ma.updateSystemTrayMenu(snap)
		}
	})
}

// EnterAlertPresentation shows the full-screen alert for m.
func (ma *MeetAlert) EnterAlertPresentation(m models.Meeting) error {
	fyne.Do(func() {
		if ma.alert != nil {
			ma.alert.Close()
		}
		ma.alert = NewAlertWindow(ma.app, m, AlertActions{
			Join:    ma.engine.Join,
			Dismiss: ma.engine.Dismiss,
		}, ma.config.PlaySound, ma.log)
		ma.alert.Show()
		platform.BringToFront()
	})
	return nil
}

// ExitAlertPresentation closes the alert window if one is showing.
func (ma *MeetAlert) ExitAlertPresentation() error {
	fyne.Do(func() {
		if ma.alert != nil {
			ma.alert.Close()
			ma.alert = nil
		}
	})
	return nil
}

// OpenExternal opens link in the default browser or call client.
func (ma *MeetAlert) OpenExternal(link string) error {
	u, err := url.Parse(link)
	if err != nil {
		return fmt.Errorf("parse link: %w", err)
	}
	if err := ma.app.OpenURL(u); err != nil {
		ma.log.Warn("open url failed, falling back to the OS opener", logging.Err(err))
		return platform.Open(u.String())
	}
	return nil
}

func startMetricsServer(addr string, reg *prometheus.Registry, log logging.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler(reg))
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		log.Info("serving metrics", logging.F("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("metrics server failed", logging.Err(err))
		}
	}()
	return srv
}

func (ma *MeetAlert) quit() {
	if ma.cancel != nil {
		ma.cancel()
	}
	ma.unregisterShortcut()
	if ma.metrics != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := ma.metrics.Shutdown(ctx); err != nil {
			ma.log.Warn("metrics server shutdown", logging.Err(err))
		}
	}
	ma.app.Quit()
}
