package output

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// column reads one display value out of a pass-through record. The first key
// present in the record wins.
type column struct {
	Header string
	Keys   []string
}

var employeeColumns = []column{
	{Header: "Employee", Keys: []string{"employee_num", "id"}},
	{Header: "Name", Keys: []string{"name", "employee_name"}},
	{Header: "Granted", Keys: []string{"granted", "granted_days"}},
	{Header: "Used", Keys: []string{"used", "used_days"}},
	{Header: "Balance", Keys: []string{"balance", "remaining"}},
	{Header: "Usage", Keys: []string{"usage_rate"}},
}

var leaveRequestColumns = []column{
	{Header: "ID", Keys: []string{"id"}},
	{Header: "Employee", Keys: []string{"employee_num"}},
	{Header: "Name", Keys: []string{"employee_name", "name"}},
	{Header: "From", Keys: []string{"start_date"}},
	{Header: "To", Keys: []string{"end_date"}},
	{Header: "Days", Keys: []string{"days_requested", "days"}},
	{Header: "Status", Keys: []string{"status"}},
}

func headers(columns []column) []string {
	out := make([]string, len(columns))
	for i, c := range columns {
		out[i] = c.Header
	}
	return out
}

// recordRow flattens a JSON object into the given columns. Records that are not
// objects yield a row of blanks.
func recordRow(raw json.RawMessage, columns []column) []string {
	row := make([]string, len(columns))

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return row
	}
	for i, c := range columns {
		for _, key := range c.Keys {
			if value, ok := fields[key]; ok {
				row[i] = scalar(value)
				break
			}
		}
	}
	return row
}

// scalar renders a JSON value for a table cell.
func scalar(raw json.RawMessage) string {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return strings.TrimSpace(string(raw))
	}
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return strings.TrimSpace(string(raw))
	}
}

type reportEntry struct {
	Key   string
	Value string
}

// reportEntries flattens the top level of a report object, sorted by key.
func reportEntries(data json.RawMessage) []reportEntry {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		if len(data) == 0 {
			return nil
		}
		return []reportEntry{{Key: "data", Value: scalar(data)}}
	}

	keys := make([]string, 0, len(fields))
	for key := range fields {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	entries := make([]reportEntry, 0, len(keys))
	for _, key := range keys {
		entries = append(entries, reportEntry{Key: key, Value: scalar(fields[key])})
	}
	return entries
}

func yearTitle(year int) string {
	if year <= 0 {
		return "Employees"
	}
	return fmt.Sprintf("Employees %d", year)
}

func requestsTitle(status string) string {
	if status == "" {
		return "Leave requests"
	}
	return fmt.Sprintf("Leave requests (%s)", status)
}

func reportTitle(year, month int) string {
	return fmt.Sprintf("Monthly report %d-%02d", year, month)
}

func toRow(values []string) []any {
	row := make([]any, len(values))
	for i, v := range values {
		row[i] = v
	}
	return row
}
