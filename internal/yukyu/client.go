// Package yukyu is the typed client for the paid-leave backend and the guarded
// dashboard service built on it.
package yukyu

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yukyu/yukyu/internal/fetch"
)

// Backend routes, relative to the API base.
const (
	EmployeesPath     = "/api/employees"
	LeaveRequestsPath = "/api/leave-requests"
	SyncPath          = "/api/sync"
	MonthlyReportPath = "/api/reports/monthly"
)

// CSRFRejectedMessage is shown when the backend rejects the token even after the
// coordinator's retry.
const CSRFRejectedMessage = "Security token was rejected. Reload and try again."

// Requester is the part of fetch.Coordinator the client needs.
type Requester interface {
	Request(ctx context.Context, req fetch.Request) (*fetch.RawResponse, error)
}

// Client calls the backend and interprets its responses.
type Client struct {
	Requester Requester
	Clock     func() time.Time
}

// NewClient returns a client over r.
func NewClient(r Requester) *Client {
	return &Client{Requester: r}
}

// FetchEmployees loads the employee balances for year. A non-positive year asks the
// backend for its default year.
func (c *Client) FetchEmployees(ctx context.Context, year int) (*EmployeeList, error) {
	path := EmployeesPath
	if year > 0 {
		path += "?" + url.Values{"year": []string{strconv.Itoa(year)}}.Encode()
	}

	resp, err := c.call(ctx, fetch.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	records, extra, err := decodeList(resp)
	if err != nil {
		return nil, err
	}

	list := &EmployeeList{
		Year:      year,
		Records:   records,
		FetchedAt: c.now(),
	}
	if raw, ok := extra["available_years"]; ok {
		if err := decodeField(resp, "available_years", raw, &list.AvailableYears); err != nil {
			return nil, err
		}
	}
	if raw, ok := extra["year"]; ok && year <= 0 {
		if err := decodeField(resp, "year", raw, &list.Year); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// FetchLeaveRequests lists leave requests, optionally filtered by status.
func (c *Client) FetchLeaveRequests(ctx context.Context, status string) (*LeaveRequestList, error) {
	path := LeaveRequestsPath
	status = strings.TrimSpace(status)
	if status != "" {
		path += "?" + url.Values{"status": []string{status}}.Encode()
	}

	resp, err := c.call(ctx, fetch.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	records, _, err := decodeList(resp)
	if err != nil {
		return nil, err
	}
	return &LeaveRequestList{Status: status, Records: records, FetchedAt: c.now()}, nil
}

// CreateLeaveRequest submits a new request and returns the backend's record.
func (c *Client) CreateLeaveRequest(ctx context.Context, input LeaveRequestInput) (json.RawMessage, error) {
	if strings.TrimSpace(input.EmployeeNum) == "" {
		return nil, errors.New("employee number is required")
	}
	resp, err := c.call(ctx, fetch.MethodPost, LeaveRequestsPath, input)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body), nil
}

// ApproveLeaveRequest approves the request with id.
func (c *Client) ApproveLeaveRequest(ctx context.Context, id string) error {
	path, err := leaveRequestAction(id, "approve")
	if err != nil {
		return err
	}
	_, err = c.call(ctx, fetch.MethodPost, path, nil)
	return err
}

// RejectLeaveRequest rejects the request with id.
func (c *Client) RejectLeaveRequest(ctx context.Context, id, reason string) error {
	path, err := leaveRequestAction(id, "reject")
	if err != nil {
		return err
	}
	_, err = c.call(ctx, fetch.MethodPost, path, map[string]string{"reason": reason})
	return err
}

// Sync asks the backend to re-import its source spreadsheets.
func (c *Client) Sync(ctx context.Context) (json.RawMessage, error) {
	resp, err := c.call(ctx, fetch.MethodPost, SyncPath, nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(resp.Body), nil
}

// FetchMonthlyReport loads the report for year/month.
func (c *Client) FetchMonthlyReport(ctx context.Context, year, month int) (*MonthlyReport, error) {
	if month < 1 || month > 12 {
		return nil, fmt.Errorf("month must be between 1 and 12, got %d", month)
	}
	if year <= 0 {
		return nil, fmt.Errorf("year must be positive, got %d", year)
	}

	resp, err := c.call(ctx, fetch.MethodGet, fmt.Sprintf("%s/%d/%d", MonthlyReportPath, year, month), nil)
	if err != nil {
		return nil, err
	}

	var data json.RawMessage
	if err := resp.DecodeJSON(&data); err != nil {
		return nil, err
	}
	return &MonthlyReport{Year: year, Month: month, Data: data, FetchedAt: c.now()}, nil
}

// call issues the request and converts API-level failures into *fetch.Error.
func (c *Client) call(ctx context.Context, method fetch.Method, path string, payload any) (*fetch.RawResponse, error) {
	if c == nil || c.Requester == nil {
		return nil, errors.New("yukyu client is not configured")
	}

	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = encoded
	}

	resp, err := c.Requester.Request(ctx, fetch.Request{URL: path, Method: method, Body: body})
	if err != nil {
		return nil, err
	}
	// Only a rejection that survived the coordinator's retry is a CSRF failure.
	if resp.CSRFRejected() && resp.Attempts > 1 {
		return nil, &fetch.Error{Kind: fetch.KindCSRFRejected, Status: resp.Status, Message: CSRFRejectedMessage}
	}
	if !resp.OK() {
		return nil, &fetch.Error{Kind: fetch.KindStatus, Status: resp.Status, Message: resp.ErrorMessage()}
	}
	return resp, nil
}

func (c *Client) now() time.Time {
	if c != nil && c.Clock != nil {
		return c.Clock()
	}
	return time.Now().UTC()
}

func leaveRequestAction(id, action string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", errors.New("leave request id is required")
	}
	return fmt.Sprintf("%s/%s/%s", LeaveRequestsPath, url.PathEscape(id), action), nil
}

// decodeList accepts either a bare JSON array or an object whose "data" field is the
// array. Other top-level fields of the object are returned alongside.
func decodeList(resp *fetch.RawResponse) ([]json.RawMessage, map[string]json.RawMessage, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(resp.Body, &records); err == nil {
		return records, nil, nil
	}

	var envelope map[string]json.RawMessage
	if err := resp.DecodeJSON(&envelope); err != nil {
		return nil, nil, err
	}
	raw, ok := envelope["data"]
	if !ok {
		return nil, nil, &fetch.Error{Kind: fetch.KindDecode, Status: resp.Status, Message: "response has no data field"}
	}
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, nil, &fetch.Error{Kind: fetch.KindDecode, Status: resp.Status, Message: fmt.Sprintf("decode data: %v", err), Err: err}
	}
	delete(envelope, "data")
	return records, envelope, nil
}

func decodeField(resp *fetch.RawResponse, name string, raw json.RawMessage, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return &fetch.Error{Kind: fetch.KindDecode, Status: resp.Status, Message: fmt.Sprintf("decode %s: %v", name, err), Err: err}
	}
	return nil
}
