package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yukyu/yukyu/internal/guard"
	"github.com/yukyu/yukyu/internal/output"
	"github.com/yukyu/yukyu/internal/yukyu"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Show the monthly leave report",
	Args:  cobra.NoArgs,
	RunE:  runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	reportCmd.Flags().Int("year", 0, "Report year (default: current year)")
	reportCmd.Flags().Int("month", 0, "Report month 1-12 (default: current month)")
	addOutputFlags(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	year, _ := cmd.Flags().GetInt("year")
	month, _ := cmd.Flags().GetInt("month")
	now := time.Now()
	if year == 0 {
		year = now.Year()
	}
	if month == 0 {
		month = int(now.Month())
	}
	if month < 1 || month > 12 {
		return fmt.Errorf("--month must be between 1 and 12, got %d", month)
	}
	format, err := resolveOutputFormat(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	svc, _, _, err := openService(ctx)
	if err != nil {
		return err
	}

	var report *yukyu.MonthlyReport
	notifier := newCLINotifier()
	outcome := svc.GuardedFetchMonthlyReport(ctx, year, month,
		guard.SinkFunc[*yukyu.MonthlyReport](func(r *yukyu.MonthlyReport) { report = r }), notifier)
	debugOutcome(yukyu.OpMonthlyReport, outcome, zap.Int("year", year), zap.Int("month", month))
	if err := notifier.Err(); err != nil {
		return err
	}

	rendered, err := output.NewFormatter(format).FormatReport(report)
	if err != nil {
		return err
	}
	return writeRendered(cmd, fmt.Sprintf("report-%d-%02d", year, month), format, rendered)
}
