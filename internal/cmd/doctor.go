package cmd

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yukyu/yukyu/internal/config"
	"github.com/yukyu/yukyu/internal/fetch"
	"github.com/yukyu/yukyu/internal/observability"
	"github.com/yukyu/yukyu/internal/yukyu"
)

const doctorChecks = 6

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks",
	Long:  "Check the runtime, configuration and backend reachability, including the CSRF token endpoint.",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	log := observability.CLILogger
	identity := GetAppIdentity()

	log.Info("=== " + identity.BinaryName + " doctor ===")
	log.Info("")

	failed := 0
	step := func(n int, label string) string {
		return fmt.Sprintf("[%d/%d] %s...", n, doctorChecks, label)
	}

	// 1: Go runtime
	goVersion := runtime.Version()
	log.Info(fmt.Sprintf("%s ✅ %s %s/%s", step(1, "Checking Go runtime"), goVersion, runtime.GOOS, runtime.GOARCH),
		zap.String("go_version", goVersion))

	// 2: Gofulmen and Crucible
	version := crucible.GetVersion()
	if version.Gofulmen != "" && version.Crucible != "" {
		log.Info(fmt.Sprintf("%s ✅ gofulmen %s, crucible %s", step(2, "Checking Gofulmen/Crucible"), version.Gofulmen, version.Crucible))
	} else {
		log.Error(step(2, "Checking Gofulmen/Crucible") + " ❌ version metadata unavailable")
		failed++
	}

	// 3: Config file
	if path := config.DefaultConfigPath(ctx); path == "" {
		log.Warn(step(3, "Checking config file") + " ⚠️  cannot resolve config directory")
	} else if config.ConfigFileExists(path) {
		log.Info(fmt.Sprintf("%s ✅ %s", step(3, "Checking config file"), path), zap.String("config_file", path))
	} else {
		log.Info(fmt.Sprintf("%s ✅ none at %s (defaults and environment)", step(3, "Checking config file"), path))
	}

	// 4: Config values
	cfg, err := loadConfig(ctx)
	if err != nil {
		log.Error(step(4, "Validating configuration")+" ❌ invalid", zap.Error(err))
		log.Warn(step(5, "Checking CSRF token endpoint") + " ⚠️  skipped (config not loaded)")
		log.Warn(step(6, "Checking employees endpoint") + " ⚠️  skipped (config not loaded)")
		return doctorResult(failed + 1)
	}
	log.Info(fmt.Sprintf("%s ✅ backend %s, timeout %s, token TTL %s", step(4, "Validating configuration"),
		cfg.API.BaseURL, cfg.API.DefaultTimeout, cfg.API.CSRFTokenTTL))

	coordinator := newCoordinator(cfg, nil)

	// 5: CSRF token endpoint
	started := time.Now()
	if _, err := probeCSRF(ctx, coordinator, cfg.API.DefaultTimeout); err != nil {
		log.Error(fmt.Sprintf("%s ❌ %s", step(5, "Checking CSRF token endpoint"), fetch.MessageOf(err)),
			zap.String("kind", string(fetch.KindOf(err))))
		failed++
	} else {
		log.Info(fmt.Sprintf("%s ✅ %s (%s)", step(5, "Checking CSRF token endpoint"),
			coordinator.CSRFTokenPath, time.Since(started).Round(time.Millisecond)))
	}

	// 6: Employees endpoint
	started = time.Now()
	list, err := yukyu.NewClient(coordinator).FetchEmployees(ctx, cfg.Refresh.Year)
	if err != nil {
		log.Error(fmt.Sprintf("%s ❌ %s", step(6, "Checking employees endpoint"), fetch.MessageOf(err)),
			zap.String("kind", string(fetch.KindOf(err))))
		failed++
	} else {
		log.Info(fmt.Sprintf("%s ✅ %d records for %s (%s)", step(6, "Checking employees endpoint"),
			len(list.Records), yukyu.YearLabel(list.Year), time.Since(started).Round(time.Millisecond)))
	}

	return doctorResult(failed)
}

func probeCSRF(ctx context.Context, coordinator *fetch.Coordinator, timeout time.Duration) (fetch.CSRFToken, error) {
	if timeout <= 0 {
		timeout = fetch.DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return coordinator.GetCSRFToken(ctx)
}

func doctorResult(failed int) error {
	log := observability.CLILogger
	log.Info("")
	if failed > 0 {
		log.Warn("⚠️  Some checks failed. Review the output above for details.")
		log.Info("=== End Diagnostics ===")
		return fmt.Errorf("%d of %d doctor checks failed", failed, doctorChecks)
	}
	log.Info("✅ All checks passed.")
	log.Info("=== End Diagnostics ===")
	return nil
}
