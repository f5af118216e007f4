package output

import (
	"fmt"
	"strings"

	"github.com/yukyu/yukyu/internal/yukyu"
)

// MarkdownFormatter renders results as markdown tables.
type MarkdownFormatter struct{}

// FormatEmployees renders an employee list as Markdown.
func (f *MarkdownFormatter) FormatEmployees(list *yukyu.EmployeeList) (string, error) {
	if list == nil {
		return "", nil
	}
	t := recordsTable("", employeeColumns, list.Records)
	return markdownSection(yearTitle(list.Year), t.RenderMarkdown()), nil
}

// FormatLeaveRequests renders leave requests as Markdown.
func (f *MarkdownFormatter) FormatLeaveRequests(list *yukyu.LeaveRequestList) (string, error) {
	if list == nil {
		return "", nil
	}
	t := recordsTable("", leaveRequestColumns, list.Records)
	return markdownSection(requestsTitle(list.Status), t.RenderMarkdown()), nil
}

// FormatReport renders a monthly report as Markdown.
func (f *MarkdownFormatter) FormatReport(report *yukyu.MonthlyReport) (string, error) {
	if report == nil {
		return "", nil
	}
	t := reportTable(report)
	t.SetTitle("")
	return markdownSection(reportTitle(report.Year, report.Month), t.RenderMarkdown()), nil
}

func markdownSection(title, body string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## %s\n\n", escapeMarkdownCell(title)))
	sb.WriteString(body)
	sb.WriteString("\n")
	return sb.String()
}

func escapeMarkdownCell(value string) string {
	return strings.ReplaceAll(value, "|", "\\|")
}
