package cmd

import (
	"fmt"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/yukyu/yukyu/internal/guard"
	"github.com/yukyu/yukyu/internal/output"
	"github.com/yukyu/yukyu/internal/yukyu"
)

var employeesCmd = &cobra.Command{
	Use:   "employees",
	Short: "List employees and their paid-leave balances",
	Long: `List employees and their paid-leave balances for a fiscal year.

With --years, one fetch per year is issued in the given order and run
concurrently. Only the last-issued year is printed, whatever order the
responses arrive in.

Examples:
  yukyu employees --year 2025
  yukyu employees --years 2023,2024,2025 -o json`,
	Args: cobra.NoArgs,
	RunE: runEmployees,
}

func init() {
	rootCmd.AddCommand(employeesCmd)

	employeesCmd.Flags().Int("year", 0, "Fiscal year (default: backend's current year)")
	employeesCmd.Flags().IntSlice("years", nil, "Switch through several years; only the last one is shown")
	addOutputFlags(employeesCmd)
}

func runEmployees(cmd *cobra.Command, args []string) error {
	year, err := cmd.Flags().GetInt("year")
	if err != nil {
		return err
	}
	years, err := cmd.Flags().GetIntSlice("years")
	if err != nil {
		return err
	}
	if year < 0 {
		return fmt.Errorf("--year must not be negative")
	}
	for _, y := range years {
		if y <= 0 {
			return fmt.Errorf("--years entries must be positive, got %d", y)
		}
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

	var (
		mu    sync.Mutex
		shown *yukyu.EmployeeList
	)
	sink := guard.SinkFunc[*yukyu.EmployeeList](func(list *yukyu.EmployeeList) {
		mu.Lock()
		shown = list
		mu.Unlock()
	})
	notifier := newCLINotifier()

	if len(years) == 0 {
		outcome := svc.GuardedFetchEmployees(ctx, year, sink, notifier)
		debugOutcome(yukyu.OpEmployees, outcome, zap.String("year", yukyu.YearLabel(year)))
	} else {
		started := time.Now()
		pending := make([]<-chan guard.Outcome, len(years))
		for i, y := range years {
			pending[i] = svc.GuardedFetchEmployeesAsync(ctx, y, sink, notifier)
		}
		for i, done := range pending {
			debugOutcome(yukyu.OpEmployees, <-done,
				zap.Int("year", years[i]),
				zap.Duration("elapsed", time.Since(started)))
		}
	}

	if err := notifier.Err(); err != nil {
		return err
	}
	mu.Lock()
	defer mu.Unlock()
	if shown == nil {
		return fmt.Errorf("no employees data received")
	}

	rendered, err := output.NewFormatter(format).FormatEmployees(shown)
	if err != nil {
		return err
	}
	return writeRendered(cmd, "employees", format, rendered)
}
