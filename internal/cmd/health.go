package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yukyu/yukyu/internal/fetch"
	"github.com/yukyu/yukyu/internal/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe a running dashboard server",
	Long: `Probe the health endpoints of a running "serve" instance.

Examples:
  yukyu health
  yukyu health --url http://dashboard.internal:8080 --probe ready`,
	Args: cobra.NoArgs,
	RunE: runHealth,
}

func init() {
	rootCmd.AddCommand(healthCmd)

	healthCmd.Flags().String("url", "http://localhost:8080", "server base URL")
	healthCmd.Flags().String("probe", "", "probe to query: live, ready, startup (default: aggregate)")
}

type healthReport struct {
	Status  string            `json:"status"`
	Version string            `json:"version,omitempty"`
	Checks  map[string]string `json:"checks,omitempty"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func runHealth(cmd *cobra.Command, args []string) error {
	baseURL, _ := cmd.Flags().GetString("url")
	probe, _ := cmd.Flags().GetString("probe")

	path := "/health"
	switch strings.ToLower(strings.TrimSpace(probe)) {
	case "":
	case "live", "ready", "startup":
		path += "/" + strings.ToLower(strings.TrimSpace(probe))
	default:
		return fmt.Errorf("unknown probe %q (use live, ready or startup)", probe)
	}

	coordinator := &fetch.Coordinator{BaseURL: baseURL, Logger: observability.CLILogger}
	resp, err := coordinator.Get(cmd.Context(), path)
	if err != nil {
		return err
	}

	var report healthReport
	if err := json.Unmarshal(resp.Body, &report); err != nil {
		return fmt.Errorf("unexpected health response (HTTP %d): %w", resp.Status, err)
	}

	out := cmd.OutOrStdout()
	if report.Error != nil {
		_, _ = fmt.Fprintf(out, "%s: %s (%s)\n", path, report.Error.Message, report.Error.Code)
		return fmt.Errorf("server reported %s", report.Error.Code)
	}

	_, _ = fmt.Fprintf(out, "%s: %s\n", path, report.Status)
	names := make([]string, 0, len(report.Checks))
	for name := range report.Checks {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		_, _ = fmt.Fprintf(out, "  %-20s %s\n", name, report.Checks[name])
	}
	observability.CLILogger.Debug("Health probe complete",
		zap.String("path", path),
		zap.Int("http_status", resp.Status),
		zap.String("server_version", report.Version))

	if !resp.OK() {
		return fmt.Errorf("health probe returned HTTP %d", resp.Status)
	}
	return nil
}
