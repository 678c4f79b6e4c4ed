package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/five82/nimbus/internal/config"
	"github.com/five82/nimbus/internal/dashboard"
	"github.com/five82/nimbus/internal/owm"
	"github.com/five82/nimbus/internal/prefs"
	"github.com/five82/nimbus/internal/state"
	"github.com/five82/nimbus/internal/ui"
	"github.com/five82/nimbus/internal/weather"
)

// Options configure the nimbus application.
type Options struct {
	ConfigPath string
	PrefsPath  string        // empty uses the config value
	Units      string        // empty keeps env, prefs or config, in that order
	Refresh    time.Duration // zero uses the config value
	Debug      bool
}

// Services is the wired object graph.
type Services struct {
	Config     config.Config
	Prefs      prefs.Prefs
	Logger     *slog.Logger
	Client     *owm.Client
	Manager    *state.Manager
	Dispatcher *dashboard.Dispatcher

	logCloser io.Closer
}

// Setup loads configuration and builds every component. It performs no
// network calls.
func Setup(opts Options) (*Services, error) {
	cfg, err := LoadConfig(opts)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, closer, err := newLogger(cfg.LogFile, opts.Debug)
	if err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	userPrefs, err := prefs.Load(cfg.PrefsPath)
	if err != nil {
		logger.Warn("preferences degraded to defaults", "path", cfg.PrefsPath, "error", err)
	}

	unit, err := resolveUnit(opts.Units, cfg.Units, userPrefs.Unit)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	cfg.Units = unit

	client, err := owm.NewClient(owm.Options{
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		Timeout:           cfg.RequestTimeout,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Logger:            logger,
	})
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("init weather client: %w", err)
	}

	manager, err := state.NewManager(state.Options{
		Gateway:         client,
		Favorites:       prefs.NewFavoritesFile(cfg.PrefsPath, logger),
		Unit:            unit,
		StalenessWindow: cfg.StalenessWindow,
		Logger:          logger,
	})
	if err != nil {
		_ = closer.Close()
		return nil, fmt.Errorf("init state: %w", err)
	}

	logger.Info("nimbus starting", "config", cfg.Summary(), "favorites", len(manager.Favorites()))

	return &Services{
		Config:     cfg,
		Prefs:      userPrefs,
		Logger:     logger,
		Client:     client,
		Manager:    manager,
		Dispatcher: dashboard.NewDispatcher(manager),
		logCloser:  closer,
	}, nil
}

// Close flushes the log file.
func (s *Services) Close() error {
	if s == nil || s.logCloser == nil {
		return nil
	}
	return s.logCloser.Close()
}

// LoadConfig reads .env, the config file and the command-line overrides.
func LoadConfig(opts Options) (config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return config.Config{}, err
	}
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if strings.TrimSpace(opts.PrefsPath) != "" {
		path, err := config.ExpandPath(opts.PrefsPath)
		if err != nil {
			return config.Config{}, fmt.Errorf("prefs path: %w", err)
		}
		cfg.PrefsPath = path
	}
	if opts.Refresh > 0 {
		cfg.RefreshInterval = opts.Refresh
	}
	return cfg, nil
}

// resolveUnit picks the startup unit: the flag, then an explicit
// environment setting, then the last unit saved in prefs, then the config.
func resolveUnit(flag string, configured weather.Unit, saved string) (weather.Unit, error) {
	if strings.TrimSpace(flag) != "" {
		unit, err := weather.ParseUnit(flag)
		if err != nil {
			return "", fmt.Errorf("--units: %w", err)
		}
		return unit, nil
	}
	if strings.TrimSpace(os.Getenv(config.EnvUnits)) != "" {
		return configured, nil
	}
	if strings.TrimSpace(saved) != "" {
		if unit, err := weather.ParseUnit(saved); err == nil {
			return unit, nil
		}
	}
	return configured, nil
}

// Run boots the nimbus TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	svcs, err := Setup(opts)
	if err != nil {
		return err
	}
	defer svcs.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	refresher := NewRefresher(svcs.Manager, svcs.Config.RefreshInterval, svcs.Config.RequestTimeout*2, svcs.Logger)
	if err := refresher.Start(ctx); err != nil {
		return fmt.Errorf("start refresher: %w", err)
	}
	defer refresher.Stop()

	// Favorites load in the background; the UI shows them as they arrive.
	go func() {
		if err := svcs.Manager.Bootstrap(ctx); err != nil {
			svcs.Logger.Warn("bootstrap incomplete", "error", err)
		}
	}()

	err = ui.Run(ui.Options{
		Context:    ctx,
		Dispatcher: svcs.Dispatcher,
		Suggester:  svcs.Client,
		ThemeName:  svcs.Prefs.Theme,
		PrefsPath:  svcs.Config.PrefsPath,
		LogPath:    svcs.Config.LogFile,
		Logger:     svcs.Logger,
	})
	svcs.Logger.Info("nimbus stopped")
	return err
}
