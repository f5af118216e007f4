package yukyu

import (
	"encoding/json"
	"time"
)

// EmployeeRecord is passed through untouched; the backend owns its shape.
type EmployeeRecord = json.RawMessage

// EmployeeList is the resolved result of one employees fetch.
type EmployeeList struct {
	Year           int              `json:"year" yaml:"year"`
	Records        []EmployeeRecord `json:"data" yaml:"-"`
	AvailableYears []int            `json:"available_years,omitempty" yaml:"available_years,omitempty"`
	FetchedAt      time.Time        `json:"fetched_at" yaml:"fetched_at"`
}

// LeaveRequestList is the resolved result of one leave-requests fetch.
type LeaveRequestList struct {
	Status    string            `json:"status,omitempty" yaml:"status,omitempty"`
	Records   []json.RawMessage `json:"data" yaml:"-"`
	FetchedAt time.Time         `json:"fetched_at" yaml:"fetched_at"`
}

// MonthlyReport is an opaque report document for one month.
type MonthlyReport struct {
	Year      int             `json:"year" yaml:"year"`
	Month     int             `json:"month" yaml:"month"`
	Data      json.RawMessage `json:"data" yaml:"-"`
	FetchedAt time.Time       `json:"fetched_at" yaml:"fetched_at"`
}

// LeaveRequestInput is the body of a new leave request.
type LeaveRequestInput struct {
	EmployeeNum string  `json:"employee_num"`
	StartDate   string  `json:"start_date"`
	EndDate     string  `json:"end_date"`
	Days        float64 `json:"days_requested"`
	LeaveType   string  `json:"leave_type,omitempty"`
	Reason      string  `json:"reason,omitempty"`
}
