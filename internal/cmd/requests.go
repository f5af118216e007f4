package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/yukyu/yukyu/internal/guard"
	"github.com/yukyu/yukyu/internal/output"
	"github.com/yukyu/yukyu/internal/yukyu"
)

const dateLayout = "2006-01-02"

var requestsCmd = &cobra.Command{
	Use:   "requests",
	Short: "List and manage leave requests",
}

var requestsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List leave requests",
	Args:  cobra.NoArgs,
	RunE:  runRequestsList,
}

var requestsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Submit a leave request",
	Long: `Submit a leave request for an employee.

Example:
  yukyu requests create --employee 1024 --from 2025-08-12 --to 2025-08-14 --days 3`,
	Args: cobra.NoArgs,
	RunE: runRequestsCreate,
}

var requestsApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending leave request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, _, _, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		return svc.ApproveLeaveRequest(cmd.Context(), args[0], newCLINotifier())
	},
}

var requestsRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending leave request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, err := cmd.Flags().GetString("reason")
		if err != nil {
			return err
		}
		svc, _, _, err := openService(cmd.Context())
		if err != nil {
			return err
		}
		return svc.RejectLeaveRequest(cmd.Context(), args[0], strings.TrimSpace(reason), newCLINotifier())
	},
}

func init() {
	rootCmd.AddCommand(requestsCmd)
	requestsCmd.AddCommand(requestsListCmd, requestsCreateCmd, requestsApproveCmd, requestsRejectCmd)

	requestsListCmd.Flags().String("status", "", "Filter by status (pending, approved, rejected)")
	addOutputFlags(requestsListCmd)

	addLeaveRequestFlags(requestsCreateCmd)

	requestsRejectCmd.Flags().String("reason", "", "Reason for the rejection")
}

func runRequestsList(cmd *cobra.Command, args []string) error {
	status, err := cmd.Flags().GetString("status")
	if err != nil {
		return err
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

	var list *yukyu.LeaveRequestList
	notifier := newCLINotifier()
	outcome := svc.GuardedFetchLeaveRequests(ctx, strings.TrimSpace(status),
		guard.SinkFunc[*yukyu.LeaveRequestList](func(l *yukyu.LeaveRequestList) { list = l }), notifier)
	debugOutcome(yukyu.OpLeaveRequests, outcome)
	if err := notifier.Err(); err != nil {
		return err
	}

	rendered, err := output.NewFormatter(format).FormatLeaveRequests(list)
	if err != nil {
		return err
	}
	return writeRendered(cmd, "leave-requests", format, rendered)
}

func runRequestsCreate(cmd *cobra.Command, args []string) error {
	input, err := leaveRequestInputFromFlags(cmd)
	if err != nil {
		return err
	}

	svc, _, _, err := openService(cmd.Context())
	if err != nil {
		return err
	}
	record, err := svc.CreateLeaveRequest(cmd.Context(), input, newCLINotifier())
	if err != nil {
		return err
	}
	return printRawJSON(cmd, record)
}

func addLeaveRequestFlags(cmd *cobra.Command) {
	cmd.Flags().String("employee", "", "Employee number")
	cmd.Flags().String("from", "", "First day of leave (YYYY-MM-DD)")
	cmd.Flags().String("to", "", "Last day of leave (YYYY-MM-DD, default: --from)")
	cmd.Flags().Float64("days", 0, "Days requested (default: calendar days from --from to --to)")
	cmd.Flags().String("type", "", "Leave type (e.g. full, half_am, half_pm)")
	cmd.Flags().String("reason", "", "Reason shown to the approver")
	_ = cmd.MarkFlagRequired("employee")
	_ = cmd.MarkFlagRequired("from")
}

func leaveRequestInputFromFlags(cmd *cobra.Command) (yukyu.LeaveRequestInput, error) {
	var input yukyu.LeaveRequestInput
	flags := cmd.Flags()

	employee, _ := flags.GetString("employee")
	from, _ := flags.GetString("from")
	to, _ := flags.GetString("to")
	days, _ := flags.GetFloat64("days")
	leaveType, _ := flags.GetString("type")
	reason, _ := flags.GetString("reason")

	start, err := time.Parse(dateLayout, strings.TrimSpace(from))
	if err != nil {
		return input, fmt.Errorf("invalid --from date %q: expected YYYY-MM-DD", from)
	}
	end := start
	if strings.TrimSpace(to) != "" {
		end, err = time.Parse(dateLayout, strings.TrimSpace(to))
		if err != nil {
			return input, fmt.Errorf("invalid --to date %q: expected YYYY-MM-DD", to)
		}
	}
	if end.Before(start) {
		return input, fmt.Errorf("--to (%s) is before --from (%s)", end.Format(dateLayout), start.Format(dateLayout))
	}
	if days < 0 {
		return input, fmt.Errorf("--days must not be negative")
	}
	if days == 0 {
		days = end.Sub(start).Hours()/24 + 1
	}

	return yukyu.LeaveRequestInput{
		EmployeeNum: strings.TrimSpace(employee),
		StartDate:   start.Format(dateLayout),
		EndDate:     end.Format(dateLayout),
		Days:        days,
		LeaveType:   strings.TrimSpace(leaveType),
		Reason:      strings.TrimSpace(reason),
	}, nil
}

// printRawJSON pretty-prints a backend response body, or prints it as-is when
// it is not JSON.
func printRawJSON(cmd *cobra.Command, raw json.RawMessage) error {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(raw))
		return err
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), buf.String())
	return err
}
