package yukyu

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yukyu/yukyu/internal/fetch"
)

func newBackend(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc(fetch.DefaultCSRFTokenPath, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"csrf_token":"tok"}`))
	})
	mux.HandleFunc("/", handler)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return NewClient(&fetch.Coordinator{BaseURL: server.URL, Client: server.Client()})
}

func TestFetchEmployeesEnvelope(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, EmployeesPath, r.URL.Path)
		assert.Equal(t, "2025", r.URL.Query().Get("year"))
		_, _ = w.Write([]byte(`{"data":[{"employee_num":"001","name":"Tanaka","balance":12.5}],"available_years":[2024,2025]}`))
	})

	list, err := client.FetchEmployees(context.Background(), 2025)
	require.NoError(t, err)
	require.Equal(t, 2025, list.Year)
	require.Len(t, list.Records, 1)
	require.Equal(t, []int{2024, 2025}, list.AvailableYears)

	var record map[string]any
	require.NoError(t, json.Unmarshal(list.Records[0], &record))
	require.Equal(t, "Tanaka", record["name"])
}

func TestFetchEmployeesBareArrayAndDefaultYear(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.URL.RawQuery)
		_, _ = w.Write([]byte(`[{"employee_num":"001"},{"employee_num":"002"}]`))
	})

	list, err := client.FetchEmployees(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, list.Records, 2)
}

func TestFetchEmployeesStatusError(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"detail":"database is being rebuilt"}`))
	})

	_, err := client.FetchEmployees(context.Background(), 2025)
	require.Error(t, err)
	require.ErrorIs(t, err, fetch.ErrStatus)
	require.Equal(t, "database is being rebuilt", fetch.MessageOf(err))
}

func TestFetchEmployeesDecodeError(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[]}`))
	})

	_, err := client.FetchEmployees(context.Background(), 2025)
	require.Error(t, err)
	require.Equal(t, fetch.KindDecode, fetch.KindOf(err))
}

func TestApproveRejectSendCSRFToken(t *testing.T) {
	var mu sync.Mutex
	var paths []string
	var bodies []string
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "tok", r.Header.Get(fetch.CSRFHeader))
		body, _ := io.ReadAll(r.Body)
		mu.Lock()
		defer mu.Unlock()
		paths = append(paths, r.URL.Path)
		bodies = append(bodies, string(body))
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	require.NoError(t, client.ApproveLeaveRequest(context.Background(), "17"))
	require.NoError(t, client.RejectLeaveRequest(context.Background(), "18", "overlap"))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"/api/leave-requests/17/approve", "/api/leave-requests/18/reject"}, paths)
	require.Equal(t, "", bodies[0])
	require.JSONEq(t, `{"reason":"overlap"}`, bodies[1])

	require.Error(t, client.ApproveLeaveRequest(context.Background(), " "))
}

func TestPersistentCSRFRejectionIsTyped(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error_code":"CSRF_TOKEN_INVALID"}`))
	})

	_, err := client.Sync(context.Background())
	require.Error(t, err)
	require.ErrorIs(t, err, fetch.ErrCSRFRejected)
	require.Equal(t, CSRFRejectedMessage, fetch.MessageOf(err))
}

type cannedRequester struct {
	resp *fetch.RawResponse
}

func (c cannedRequester) Request(context.Context, fetch.Request) (*fetch.RawResponse, error) {
	return c.resp, nil
}

func TestUnretriedCSRFRejectionIsStatus(t *testing.T) {
	client := NewClient(cannedRequester{resp: &fetch.RawResponse{
		Status:   http.StatusForbidden,
		Body:     []byte(`{"error_code":"CSRF_TOKEN_MISSING","detail":"token missing"}`),
		Attempts: 1,
	}})

	_, err := client.FetchEmployees(context.Background(), 2025)
	require.Error(t, err)
	require.Equal(t, fetch.KindStatus, fetch.KindOf(err))
	require.NotErrorIs(t, err, fetch.ErrCSRFRejected)
}

func TestFetchEmployeesMalformedYearsIsDecodeError(t *testing.T) {
	for name, body := range map[string]string{
		"available_years": `{"data":[],"available_years":"2024,2025"}`,
		"year":            `{"data":[],"year":"current"}`,
	} {
		t.Run(name, func(t *testing.T) {
			client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			})

			_, err := client.FetchEmployees(context.Background(), 0)
			require.ErrorIs(t, err, fetch.ErrDecode)
			require.Contains(t, fetch.MessageOf(err), name)
		})
	}
}

func TestFetchMonthlyReport(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/reports/monthly/2025/4", r.URL.Path)
		_, _ = w.Write([]byte(`{"total_days":42.5}`))
	})

	report, err := client.FetchMonthlyReport(context.Background(), 2025, 4)
	require.NoError(t, err)
	require.JSONEq(t, `{"total_days":42.5}`, string(report.Data))

	_, err = client.FetchMonthlyReport(context.Background(), 2025, 13)
	require.Error(t, err)
}

func TestCreateLeaveRequest(t *testing.T) {
	client := newBackend(t, func(w http.ResponseWriter, r *http.Request) {
		var input LeaveRequestInput
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&input))
		assert.Equal(t, "001", input.EmployeeNum)
		assert.Equal(t, 1.0, input.Days)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":99}`))
	})

	record, err := client.CreateLeaveRequest(context.Background(), LeaveRequestInput{
		EmployeeNum: "001",
		StartDate:   "2025-05-01",
		EndDate:     "2025-05-01",
		Days:        1,
	})
	require.NoError(t, err)
	require.JSONEq(t, `{"id":99}`, string(record))

	_, err = client.CreateLeaveRequest(context.Background(), LeaveRequestInput{})
	require.Error(t, err)
}
