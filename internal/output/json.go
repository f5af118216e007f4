package output

import (
	"encoding/json"

	"github.com/yukyu/yukyu/internal/yukyu"
)

// JSONFormatter renders results as JSON.
type JSONFormatter struct {
	Indent bool
}

// FormatEmployees renders an employee list as JSON.
func (f *JSONFormatter) FormatEmployees(list *yukyu.EmployeeList) (string, error) {
	if list == nil {
		return "", nil
	}
	return f.marshal(list)
}

// FormatLeaveRequests renders leave requests as JSON.
func (f *JSONFormatter) FormatLeaveRequests(list *yukyu.LeaveRequestList) (string, error) {
	if list == nil {
		return "", nil
	}
	return f.marshal(list)
}

// FormatReport renders a monthly report as JSON.
func (f *JSONFormatter) FormatReport(report *yukyu.MonthlyReport) (string, error) {
	if report == nil {
		return "", nil
	}
	return f.marshal(report)
}

func (f *JSONFormatter) marshal(v any) (string, error) {
	var (
		data []byte
		err  error
	)

	if f.Indent {
		data, err = json.MarshalIndent(v, "", "  ")
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return "", err
	}

	return string(data), nil
}
