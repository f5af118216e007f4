package output

import (
	"encoding/json"

	"gopkg.in/yaml.v3"

	"github.com/yukyu/yukyu/internal/yukyu"
)

// YAMLFormatter renders results as YAML. Pass-through records are decoded so
// they appear as nested mappings rather than strings.
type YAMLFormatter struct{}

// FormatEmployees renders an employee list as YAML.
func (f *YAMLFormatter) FormatEmployees(list *yukyu.EmployeeList) (string, error) {
	if list == nil {
		return "", nil
	}
	return marshalYAML(list)
}

// FormatLeaveRequests renders leave requests as YAML.
func (f *YAMLFormatter) FormatLeaveRequests(list *yukyu.LeaveRequestList) (string, error) {
	if list == nil {
		return "", nil
	}
	return marshalYAML(list)
}

// FormatReport renders a monthly report as YAML.
func (f *YAMLFormatter) FormatReport(report *yukyu.MonthlyReport) (string, error) {
	if report == nil {
		return "", nil
	}
	return marshalYAML(report)
}

// marshalYAML goes through JSON so embedded raw messages become generic values.
func marshalYAML(v any) (string, error) {
	encoded, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	var generic any
	if err := json.Unmarshal(encoded, &generic); err != nil {
		return "", err
	}
	data, err := yaml.Marshal(generic)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
