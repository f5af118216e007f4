package output

import (
	"encoding/json"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/yukyu/yukyu/internal/yukyu"
)

// TableFormatter renders results as an ASCII table.
type TableFormatter struct{}

// FormatEmployees renders an employee list as a table.
func (f *TableFormatter) FormatEmployees(list *yukyu.EmployeeList) (string, error) {
	if list == nil {
		return "", nil
	}
	t := recordsTable(yearTitle(list.Year), employeeColumns, list.Records)
	return t.Render(), nil
}

// FormatLeaveRequests renders leave requests as a table.
func (f *TableFormatter) FormatLeaveRequests(list *yukyu.LeaveRequestList) (string, error) {
	if list == nil {
		return "", nil
	}
	t := recordsTable(requestsTitle(list.Status), leaveRequestColumns, list.Records)
	return t.Render(), nil
}

// FormatReport renders a monthly report as a key/value table.
func (f *TableFormatter) FormatReport(report *yukyu.MonthlyReport) (string, error) {
	if report == nil {
		return "", nil
	}
	t := reportTable(report)
	return t.Render(), nil
}

func recordsTable(title string, columns []column, records []json.RawMessage) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(title)
	t.AppendHeader(table.Row(toRow(headers(columns))))
	for _, record := range records {
		t.AppendRow(table.Row(toRow(recordRow(record, columns))))
	}
	footer := make(table.Row, len(columns))
	footer[len(footer)-1] = fmt.Sprintf("%d rows", len(records))
	t.AppendFooter(footer)
	return t
}

func reportTable(report *yukyu.MonthlyReport) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetTitle(reportTitle(report.Year, report.Month))
	t.AppendHeader(table.Row{"Field", "Value"})
	for _, entry := range reportEntries(report.Data) {
		t.AppendRow(table.Row{entry.Key, entry.Value})
	}
	return t
}
