package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/yukyu/yukyu/internal/config"
	"github.com/yukyu/yukyu/internal/dashboard"
	errwrap "github.com/yukyu/yukyu/internal/errors"
	"github.com/yukyu/yukyu/internal/metrics"
	"github.com/yukyu/yukyu/internal/observability"
	"github.com/yukyu/yukyu/internal/server"
	"github.com/yukyu/yukyu/internal/server/handlers"
	"github.com/yukyu/yukyu/internal/yukyu"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the dashboard HTTP server",
	Long: `Start the dashboard HTTP server with graceful shutdown support.

The server keeps an employees snapshot for the selected year, refreshed every
refresh.interval, and serves it under /api/v1. Switching the year through
POST /api/v1/employees/year/{year} starts a fresh fetch; a slower response for
a previously selected year is discarded.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit
  • SIGHUP: Config reload (log level and refresh year)`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "localhost", "server host")
	serveCmd.Flags().IntP("port", "p", 8080, "server port")
	serveCmd.Flags().Int("year", 0, "initial fiscal year (default: backend's current year)")
	serveCmd.Flags().Duration("interval", dashboard.DefaultRefreshInterval, "snapshot refresh interval")

	_ = viper.BindPFlag("server.host", serveCmd.Flags().Lookup("host"))
	_ = viper.BindPFlag("server.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("refresh.year", serveCmd.Flags().Lookup("year"))
	_ = viper.BindPFlag("refresh.interval", serveCmd.Flags().Lookup("interval"))
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(ctx)
	if err != nil {
		return err
	}

	identity := GetAppIdentity()
	namespace := identity.TelemetryNamespace()

	observability.InitServerLogger(identity.BinaryName, cfg.Logging.Level, namespace)
	logger := observability.ServerLogger

	if cfg.Metrics.Enabled {
		if err := observability.InitMetrics(identity.BinaryName, cfg.Metrics.Port, namespace); err != nil {
			logger.Error("Failed to initialize metrics", zap.Error(err))
			return errwrap.WrapInternal(ctx, err, "metrics initialization failed")
		}
		metrics.SetServerStartTime(time.Now().Unix())
	}

	logger.Info("Initializing server",
		zap.String("service", identity.BinaryName),
		zap.String("namespace", namespace),
		zap.String("version", versionInfo.Version),
		zap.String("backend", cfg.API.BaseURL),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("metrics_enabled", cfg.Metrics.Enabled),
		zap.Int("metrics_port", cfg.Metrics.Port))

	coordinator := newCoordinator(cfg, logger)
	svc := yukyu.NewService(yukyu.NewClient(coordinator), logger)

	state := dashboard.NewState()
	notifications := dashboard.NewNotifications(dashboard.DefaultNotificationCapacity, logger)
	refresher := dashboard.NewRefresher(svc, state, notifications, dashboard.RefresherOptions{
		Interval: cfg.Refresh.Interval,
		Year:     cfg.Refresh.Year,
		Logger:   logger,
	})

	health := handlers.NewHealthManager(versionInfo.Version)
	health.RegisterLivenessChecker("app_identity", handlers.IdentityChecker(identity))
	if cfg.Metrics.Enabled {
		health.RegisterLivenessChecker("telemetry", handlers.TelemetryChecker())
	}
	if cfg.Health.Enabled {
		health.RegisterChecker("backend", handlers.BackendChecker(coordinator))
		health.RegisterChecker("employees_snapshot", handlers.SnapshotChecker(state, snapshotMaxAge(cfg.Refresh.Interval)))
	}

	handlers.SetAppIdentity(identity)
	handlers.SetBackendInfo(handlers.BackendInfo{
		BaseURL:      cfg.API.BaseURL,
		CSRFTokenTTL: cfg.API.CSRFTokenTTL.String(),
	})

	srv := server.New(server.Options{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		Health:       health,
		Dashboard: &handlers.DashboardHandler{
			State:         state,
			Notifications: notifications,
			Years:         refresher,
		},
	})

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	refreshCtx, stopRefresh := context.WithCancel(context.WithoutCancel(ctx))
	defer stopRefresh()

	// Shutdown handlers run LIFO: HTTP server, refresher, then logger flush.
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Flushing logger...")
		if err := logger.Sync(); err != nil {
			logger.Warn("Logger sync returned error (may be benign)", zap.Error(err))
		}
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		stopRefresh()
		logger.Info("Dashboard refresher stopped")
		return nil
	})

	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("Shutting down HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return errwrap.WrapInternal(ctx, err, "server shutdown failed")
		}
		logger.Info("HTTP server stopped gracefully")
		return nil
	})

	signals.OnReload(func(ctx context.Context) error {
		logger.Info("Received SIGHUP: attempting config reload")
		reloaded, err := reloadConfig(ctx)
		if err != nil {
			logger.Error("Failed to reload config", zap.Error(err))
			return errwrap.WrapConfigInvalid(ctx, err, "config reload failed")
		}
		if reloaded.Refresh.Year != refresher.Year() {
			logger.Info("Refresh year changed", zap.String("year", yukyu.YearLabel(reloaded.Refresh.Year)))
			refresher.SetYear(refreshCtx, reloaded.Refresh.Year)
		}
		logger.Info("Configuration reloaded successfully", zap.String("file", viper.ConfigFileUsed()))
		return nil
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("Failed to enable double-tap force quit", zap.Error(err))
	}

	go refresher.Run(refreshCtx)

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
			return
		}
		errChan <- nil
	}()

	go func() {
		if err := signals.Listen(ctx); err != nil {
			logger.Error("Signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		return errwrap.WrapInternal(ctx, err, "server error")
	}
	return nil
}

// reloadConfig re-reads the config file and decodes it.
func reloadConfig(ctx context.Context) (*config.Config, error) {
	if _, err := config.ReadFile(viper.GetViper()); err != nil {
		return nil, err
	}
	return loadConfig(ctx)
}

// snapshotMaxAge allows a few missed refreshes before readiness fails.
func snapshotMaxAge(interval time.Duration) time.Duration {
	if interval <= 0 {
		interval = dashboard.DefaultRefreshInterval
	}
	return 3 * interval
}
