package yukyu

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/fulmenhq/gofulmen/logging"

	"github.com/yukyu/yukyu/internal/fetch"
	"github.com/yukyu/yukyu/internal/guard"
)

// Operation identifiers used in logs and metrics.
const (
	OpEmployees     = "employees"
	OpLeaveRequests = "leave_requests"
	OpMonthlyReport = "monthly_report"
)

// Success messages for mutations.
const (
	MsgLeaveRequestCreated  = "Leave request submitted"
	MsgLeaveRequestApproved = "Leave request approved"
	MsgLeaveRequestRejected = "Leave request rejected"
	MsgSyncCompleted        = "Sync completed"
)

// Service binds the client to one guard per logical resource, so a newer employees
// fetch never discards a report and vice versa.
type Service struct {
	Client *Client

	employees *guard.Guard
	requests  *guard.Guard
	reports   *guard.Guard
}

// NewService wires client to fresh guards.
func NewService(client *Client, logger *logging.Logger) *Service {
	return &Service{
		Client:    client,
		employees: guard.New(guard.WithLogger(logger)),
		requests:  guard.New(guard.WithLogger(logger)),
		reports:   guard.New(guard.WithLogger(logger)),
	}
}

// GuardedFetchEmployees fetches year and applies the result only if no newer
// employees fetch was issued meanwhile. It blocks until the fetch completes.
func (s *Service) GuardedFetchEmployees(ctx context.Context, year int, sink guard.RenderSink[*EmployeeList], notifier guard.Notifier) guard.Outcome {
	return guard.Do(ctx, s.employees, OpEmployees, s.employeesFetcher(year), sink, notifier)
}

// GuardedFetchEmployeesAsync issues the fetch immediately and completes it in the
// background. Use it for rapid year switching.
func (s *Service) GuardedFetchEmployeesAsync(ctx context.Context, year int, sink guard.RenderSink[*EmployeeList], notifier guard.Notifier) <-chan guard.Outcome {
	return guard.Go(ctx, s.employees, OpEmployees, s.employeesFetcher(year), sink, notifier)
}

// IssueEmployeesToken reserves the next employees token without fetching. Pair it
// with RunEmployees or StartEmployees.
func (s *Service) IssueEmployeesToken() guard.Token {
	return s.employees.Issue()
}

// RunEmployees fetches year under a token from IssueEmployeesToken and waits for
// the settlement.
func (s *Service) RunEmployees(ctx context.Context, token guard.Token, year int, sink guard.RenderSink[*EmployeeList], notifier guard.Notifier) guard.Settlement {
	return guard.Run(ctx, s.employees, token, OpEmployees, s.employeesFetcher(year), sink, notifier)
}

// StartEmployees is the background form of RunEmployees.
func (s *Service) StartEmployees(ctx context.Context, token guard.Token, year int, sink guard.RenderSink[*EmployeeList], notifier guard.Notifier) <-chan guard.Settlement {
	return guard.Start(ctx, s.employees, token, OpEmployees, s.employeesFetcher(year), sink, notifier)
}

// GuardedFetchLeaveRequests is the guarded form of Client.FetchLeaveRequests.
func (s *Service) GuardedFetchLeaveRequests(ctx context.Context, status string, sink guard.RenderSink[*LeaveRequestList], notifier guard.Notifier) guard.Outcome {
	return guard.Do(ctx, s.requests, OpLeaveRequests, func(ctx context.Context) (*LeaveRequestList, error) {
		return s.Client.FetchLeaveRequests(ctx, status)
	}, sink, notifier)
}

// GuardedFetchMonthlyReport is the guarded form of Client.FetchMonthlyReport.
func (s *Service) GuardedFetchMonthlyReport(ctx context.Context, year, month int, sink guard.RenderSink[*MonthlyReport], notifier guard.Notifier) guard.Outcome {
	return guard.Do(ctx, s.reports, OpMonthlyReport, func(ctx context.Context) (*MonthlyReport, error) {
		return s.Client.FetchMonthlyReport(ctx, year, month)
	}, sink, notifier)
}

// CurrentEmployeesToken exposes the employees guard's latest token.
func (s *Service) CurrentEmployeesToken() guard.Token {
	return s.employees.Current()
}

// CreateLeaveRequest submits input and reports the outcome to notifier exactly once.
func (s *Service) CreateLeaveRequest(ctx context.Context, input LeaveRequestInput, notifier guard.Notifier) (json.RawMessage, error) {
	record, err := s.Client.CreateLeaveRequest(ctx, input)
	return record, s.report(err, MsgLeaveRequestCreated, notifier)
}

// ApproveLeaveRequest approves id and reports the outcome to notifier exactly once.
func (s *Service) ApproveLeaveRequest(ctx context.Context, id string, notifier guard.Notifier) error {
	return s.report(s.Client.ApproveLeaveRequest(ctx, id), MsgLeaveRequestApproved+" (#"+id+")", notifier)
}

// RejectLeaveRequest rejects id and reports the outcome to notifier exactly once.
func (s *Service) RejectLeaveRequest(ctx context.Context, id, reason string, notifier guard.Notifier) error {
	return s.report(s.Client.RejectLeaveRequest(ctx, id, reason), MsgLeaveRequestRejected+" (#"+id+")", notifier)
}

// Sync triggers a backend re-import and reports the outcome to notifier exactly once.
func (s *Service) Sync(ctx context.Context, notifier guard.Notifier) (json.RawMessage, error) {
	result, err := s.Client.Sync(ctx)
	return result, s.report(err, MsgSyncCompleted, notifier)
}

func (s *Service) employeesFetcher(year int) func(context.Context) (*EmployeeList, error) {
	return func(ctx context.Context) (*EmployeeList, error) {
		return s.Client.FetchEmployees(ctx, year)
	}
}

func (s *Service) report(err error, success string, notifier guard.Notifier) error {
	if notifier == nil {
		return err
	}
	if err != nil {
		notifier.NotifyError(fetch.KindOf(err), fetch.MessageOf(err))
		return err
	}
	guard.NotifySuccess(notifier, success)
	return nil
}

// YearLabel renders a year for display; zero means the backend default.
func YearLabel(year int) string {
	if year <= 0 {
		return "current"
	}
	return strconv.Itoa(year)
}
