package yukyu

import (
	"context"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yukyu/yukyu/internal/fetch"
	"github.com/yukyu/yukyu/internal/guard"
)

type dashboardRecorder struct {
	mu       sync.Mutex
	years    []int
	errors   []string
	messages []string
}

func (d *dashboardRecorder) Render(list *EmployeeList) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.years = append(d.years, list.Year)
}

func (d *dashboardRecorder) NotifyError(kind fetch.ErrorKind, message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.errors = append(d.errors, string(kind)+": "+message)
}

func (d *dashboardRecorder) NotifySuccess(message string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.messages = append(d.messages, message)
}

func TestGuardedFetchEmployeesLatestYearWins(t *testing.T) {
	release2024 := make(chan struct{})
	served2024 := make(chan struct{})
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("year") {
		case "2024":
			<-release2024
			_, _ = w.Write([]byte(`{"data":[{"employee_num":"old"}]}`))
			close(served2024)
		case "2025":
			_, _ = w.Write([]byte(`{"data":[{"employee_num":"new"}]}`))
		}
	})
	service := NewService(client, nil)
	rec := &dashboardRecorder{}

	done2024 := service.GuardedFetchEmployeesAsync(context.Background(), 2024, rec, rec)
	done2025 := service.GuardedFetchEmployeesAsync(context.Background(), 2025, rec, rec)

	require.Equal(t, guard.OutcomeApplied, <-done2025)
	close(release2024)
	<-served2024
	require.Equal(t, guard.OutcomeStale, <-done2024)

	require.Equal(t, []int{2025}, rec.years)
	require.Empty(t, rec.errors)
	require.Equal(t, guard.Token(2), service.CurrentEmployeesToken())
}

func TestGuardedFetchEmployeesStaleErrorIsSilent(t *testing.T) {
	release2024 := make(chan struct{})
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("year") == "2024" {
			<-release2024
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[]`))
	})
	service := NewService(client, nil)
	rec := &dashboardRecorder{}

	done2024 := service.GuardedFetchEmployeesAsync(context.Background(), 2024, rec, rec)
	done2025 := service.GuardedFetchEmployeesAsync(context.Background(), 2025, rec, rec)

	require.Equal(t, guard.OutcomeApplied, <-done2025)
	close(release2024)
	require.Equal(t, guard.OutcomeStale, <-done2024)
	require.Empty(t, rec.errors)
}

func TestGuardedFetchEmployeesReportsCurrentError(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"detail":"boom"}`))
	})
	service := NewService(client, nil)
	rec := &dashboardRecorder{}

	outcome := service.GuardedFetchEmployees(context.Background(), 2025, rec, rec)
	require.Equal(t, guard.OutcomeFailed, outcome)
	require.Equal(t, []string{"status: boom"}, rec.errors)
	require.Empty(t, rec.years)
}

func TestMutationsNotifyExactlyOnce(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/leave-requests/2/approve" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"detail":"request not found"}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	})
	service := NewService(client, nil)
	rec := &dashboardRecorder{}

	require.NoError(t, service.ApproveLeaveRequest(context.Background(), "1", rec))
	require.Error(t, service.ApproveLeaveRequest(context.Background(), "2", rec))
	_, err := service.Sync(context.Background(), rec)
	require.NoError(t, err)

	require.Equal(t, []string{MsgLeaveRequestApproved + " (#1)", MsgSyncCompleted}, rec.messages)
	require.Equal(t, []string{"status: request not found"}, rec.errors)
}

func TestYearLabel(t *testing.T) {
	require.Equal(t, "current", YearLabel(0))
	require.Equal(t, "2025", YearLabel(2025))
}
