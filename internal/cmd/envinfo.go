package cmd

import (
	"fmt"
	"runtime"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yukyu/yukyu/internal/config"
	"github.com/yukyu/yukyu/internal/observability"
	"github.com/yukyu/yukyu/internal/yukyu"
)

var envInfoCmd = &cobra.Command{
	Use:   "envinfo",
	Short: "Display environment information",
	Long:  "Display environment, configuration, and version information.",
	Run: func(cmd *cobra.Command, args []string) {
		log := observability.CLILogger
		identity := GetAppIdentity()
		version := crucible.GetVersion()

		log.Info("=== " + identity.BinaryName + " Environment Information ===")
		log.Info("")

		log.Info("Application:")
		log.Info("  Name:       " + identity.BinaryName)
		log.Info("  Version:    " + versionInfo.Version)
		log.Info("  Commit:     " + versionInfo.Commit)
		log.Info("  Built:      " + versionInfo.BuildDate)
		log.Info("  Env Prefix: " + identity.EnvPrefix)
		log.Info("")

		log.Info("SSOT:")
		log.Info("  Gofulmen:   "+version.Gofulmen, zap.String("gofulmen_version", version.Gofulmen))
		log.Info("  Crucible:   "+version.Crucible, zap.String("crucible_version", version.Crucible))
		log.Info("")

		log.Info("Runtime:")
		log.Info("  Go Version: "+runtime.Version(), zap.String("go_version", runtime.Version()))
		log.Info("  GOOS:       "+runtime.GOOS, zap.String("goos", runtime.GOOS))
		log.Info("  GOARCH:     "+runtime.GOARCH, zap.String("goarch", runtime.GOARCH))
		log.Info("")

		cfg, err := loadConfig(cmd.Context())
		if err != nil {
			log.Warn("Config load failed", zap.Error(err))
			return
		}

		log.Info("Backend:")
		log.Info("  Base URL:        "+cfg.API.BaseURL, zap.String("base_url", cfg.API.BaseURL))
		log.Info("  Timeout:         " + cfg.API.DefaultTimeout.String())
		log.Info("  CSRF Token TTL:  " + cfg.API.CSRFTokenTTL.String())
		log.Info("  CSRF Token Path: " + cfg.API.CSRFTokenPath)
		if cfg.API.RateLimit.RPS > 0 {
			log.Info(fmt.Sprintf("  Rate Limit:      %.2f rps, burst %d", cfg.API.RateLimit.RPS, cfg.API.RateLimit.Burst))
		} else {
			log.Info("  Rate Limit:      off")
		}
		log.Info(fmt.Sprintf("  Tracing:         %t", cfg.API.Tracing))
		log.Info("")

		log.Info("Dashboard:")
		log.Info("  Refresh:         " + cfg.Refresh.Interval.String())
		log.Info("  Year:            " + yukyu.YearLabel(cfg.Refresh.Year))
		log.Info("  Server:          " + fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port))
		log.Info(fmt.Sprintf("  Metrics:         %t (port %d)", cfg.Metrics.Enabled, cfg.Metrics.Port))
		log.Info("  Log Level:       " + cfg.Logging.Level)
		log.Info("  Config File:     " + config.DefaultConfigPath(cmd.Context()))
		log.Info("")

		log.Info("=== End Environment Information ===")
	},
}

func init() {
	rootCmd.AddCommand(envInfoCmd)
}
