// Package dashboard keeps the last applied snapshots of each resource and drives
// periodic guarded refreshes.
package dashboard

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/yukyu/yukyu/internal/guard"
	"github.com/yukyu/yukyu/internal/yukyu"
)

// EmployeesSnapshot is the employees data currently on display.
type EmployeesSnapshot struct {
	Year           int               `json:"year"`
	Records        []json.RawMessage `json:"data"`
	AvailableYears []int             `json:"available_years,omitempty"`
	FetchedAt      time.Time         `json:"fetched_at"`
	AppliedAt      time.Time         `json:"applied_at"`
	Revision       uint64            `json:"revision"`
}

// State holds what the dashboard shows. Each resource is replaced wholesale by
// its render sink.
type State struct {
	mu        sync.RWMutex
	employees *EmployeesSnapshot
	requests  *yukyu.LeaveRequestList
	report    *yukyu.MonthlyReport
	revision  uint64
	clock     func() time.Time
}

// NewState returns an empty state.
func NewState() *State {
	return &State{clock: func() time.Time { return time.Now().UTC() }}
}

// EmployeesSink renders employee lists into the state.
func (s *State) EmployeesSink() guard.RenderSink[*yukyu.EmployeeList] {
	return guard.SinkFunc[*yukyu.EmployeeList](s.applyEmployees)
}

// LeaveRequestsSink renders leave request lists into the state.
func (s *State) LeaveRequestsSink() guard.RenderSink[*yukyu.LeaveRequestList] {
	return guard.SinkFunc[*yukyu.LeaveRequestList](func(list *yukyu.LeaveRequestList) {
		s.mu.Lock()
		s.requests = list
		s.mu.Unlock()
	})
}

// ReportSink renders monthly reports into the state.
func (s *State) ReportSink() guard.RenderSink[*yukyu.MonthlyReport] {
	return guard.SinkFunc[*yukyu.MonthlyReport](func(report *yukyu.MonthlyReport) {
		s.mu.Lock()
		s.report = report
		s.mu.Unlock()
	})
}

func (s *State) applyEmployees(list *yukyu.EmployeeList) {
	if list == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.revision++
	s.employees = &EmployeesSnapshot{
		Year:           list.Year,
		Records:        list.Records,
		AvailableYears: list.AvailableYears,
		FetchedAt:      list.FetchedAt,
		AppliedAt:      s.clock(),
		Revision:       s.revision,
	}
}

// Employees returns the current employees snapshot, or nil before the first
// successful fetch.
func (s *State) Employees() *EmployeesSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.employees == nil {
		return nil
	}
	snapshot := *s.employees
	return &snapshot
}

// LeaveRequests returns the last applied leave request list.
func (s *State) LeaveRequests() *yukyu.LeaveRequestList {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.requests
}

// Report returns the last applied monthly report.
func (s *State) Report() *yukyu.MonthlyReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}
