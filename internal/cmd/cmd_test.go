package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/fulmenhq/gofulmen/foundry"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/yukyu/yukyu/internal/errors"
	"github.com/yukyu/yukyu/internal/fetch"
	"github.com/yukyu/yukyu/internal/yukyu"
)

func TestLeaveRequestInputFromFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    yukyu.LeaveRequestInput
		wantErr string
	}{
		{
			name: "single day defaults",
			args: []string{"--employee", " 1024 ", "--from", "2025-08-12"},
			want: yukyu.LeaveRequestInput{EmployeeNum: "1024", StartDate: "2025-08-12", EndDate: "2025-08-12", Days: 1},
		},
		{
			name: "range counts calendar days",
			args: []string{"--employee", "7", "--from", "2025-08-12", "--to", "2025-08-14", "--reason", "summer"},
			want: yukyu.LeaveRequestInput{EmployeeNum: "7", StartDate: "2025-08-12", EndDate: "2025-08-14", Days: 3, Reason: "summer"},
		},
		{
			name: "explicit half day",
			args: []string{"--employee", "7", "--from", "2025-08-12", "--days", "0.5", "--type", "half_am"},
			want: yukyu.LeaveRequestInput{EmployeeNum: "7", StartDate: "2025-08-12", EndDate: "2025-08-12", Days: 0.5, LeaveType: "half_am"},
		},
		{
			name:    "bad date",
			args:    []string{"--employee", "7", "--from", "12/08/2025"},
			wantErr: "invalid --from date",
		},
		{
			name:    "end before start",
			args:    []string{"--employee", "7", "--from", "2025-08-12", "--to", "2025-08-01"},
			wantErr: "is before --from",
		},
		{
			name:    "negative days",
			args:    []string{"--employee", "7", "--from", "2025-08-12", "--days", "-1"},
			wantErr: "must not be negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := &cobra.Command{Use: "create"}
			addLeaveRequestFlags(cmd)
			require.NoError(t, cmd.ParseFlags(tt.args))

			got, err := leaveRequestInputFromFlags(cmd)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExitCodeFor(t *testing.T) {
	assert.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCodeFor(&fetch.Error{Kind: fetch.KindTimeout, Message: fetch.TimeoutMessage}))
	assert.Equal(t, foundry.ExitExternalServiceUnavailable, ExitCodeFor(&fetch.Error{Kind: fetch.KindNetwork, Message: "connection refused"}))
	assert.Equal(t, foundry.ExitFailure, ExitCodeFor(&fetch.Error{Kind: fetch.KindStatus, Status: 404, Message: "not found"}))
	assert.Equal(t, foundry.ExitConfigInvalid, ExitCodeFor(apperrors.NewConfigInvalidError("api.base_url is required")))
	assert.Equal(t, foundry.ExitFailure, ExitCodeFor(errors.New("boom")))
}

func TestCLINotifierKeepsFailure(t *testing.T) {
	n := &cliNotifier{}
	require.NoError(t, n.Err())

	n.NotifySuccess("ignored without logger")
	n.NotifyError(fetch.KindCSRFRejected, yukyu.CSRFRejectedMessage)

	err := n.Err()
	require.Error(t, err)
	assert.True(t, errors.Is(err, fetch.ErrCSRFRejected))
	assert.Equal(t, yukyu.CSRFRejectedMessage, fetch.MessageOf(err))
}

func TestEmployeesCommandShowsLastIssuedYear(t *testing.T) {
	served2025 := make(chan struct{})
	var once sync.Once

	mux := http.NewServeMux()
	mux.HandleFunc("/api/csrf-token", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"csrf_token":"tok"}`))
	})
	mux.HandleFunc("/api/employees", func(w http.ResponseWriter, r *http.Request) {
		year := r.URL.Query().Get("year")
		if year == "2024" {
			// Answer the older year last.
			<-served2025
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":[{"employee_num":"` + year + `-1","name":"Sato"}],"available_years":[2024,2025]}`))
		if year == "2025" {
			once.Do(func() { close(served2025) })
		}
	})
	backend := httptest.NewServer(mux)
	t.Cleanup(backend.Close)

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"employees", "--base-url", backend.URL, "--years", "2024,2025", "-o", "json"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())

	var shown yukyu.EmployeeList
	require.NoError(t, json.Unmarshal(out.Bytes(), &shown))
	assert.Equal(t, 2025, shown.Year)
	require.Len(t, shown.Records, 1)
	assert.Contains(t, string(shown.Records[0]), "2025-1")
	assert.Equal(t, []int{2024, 2025}, shown.AvailableYears)
}
