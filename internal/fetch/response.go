package fetch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Method is an HTTP verb accepted by the coordinator.
type Method string

const (
	MethodGet    Method = http.MethodGet
	MethodPost   Method = http.MethodPost
	MethodPut    Method = http.MethodPut
	MethodDelete Method = http.MethodDelete
	MethodPatch  Method = http.MethodPatch
)

// ParseMethod normalizes a verb and rejects anything outside the supported set.
func ParseMethod(value string) (Method, error) {
	m := Method(strings.ToUpper(strings.TrimSpace(value)))
	if m == "" {
		return MethodGet, nil
	}
	if !m.Valid() {
		return "", fmt.Errorf("unsupported method: %s", value)
	}
	return m, nil
}

// Valid reports whether m is one of the supported verbs.
func (m Method) Valid() bool {
	switch m {
	case MethodGet, MethodPost, MethodPut, MethodDelete, MethodPatch:
		return true
	default:
		return false
	}
}

// Mutating reports whether requests with this verb need a CSRF token.
func (m Method) Mutating() bool {
	switch m {
	case MethodPost, MethodPut, MethodDelete, MethodPatch:
		return true
	default:
		return false
	}
}

// CSRF rejection codes the backend places in 403 bodies.
const (
	CodeCSRFTokenMissing = "CSRF_TOKEN_MISSING"
	CodeCSRFTokenInvalid = "CSRF_TOKEN_INVALID"
)

// RawResponse is a fully read HTTP response. HTTP error statuses are not errors at this
// layer; callers interpret Status against their API contract.
type RawResponse struct {
	Status int
	Header http.Header
	Body   []byte
	// Attempts is 2 when the request was reissued after a CSRF rejection.
	Attempts int
}

// OK reports a 2xx status.
func (r *RawResponse) OK() bool {
	return r != nil && r.Status >= 200 && r.Status < 300
}

// DecodeJSON unmarshals the body into v.
func (r *RawResponse) DecodeJSON(v any) error {
	if r == nil || len(r.Body) == 0 {
		return &Error{Kind: KindDecode, Message: "empty response body"}
	}
	if err := json.Unmarshal(r.Body, v); err != nil {
		return &Error{Kind: KindDecode, Message: fmt.Sprintf("decode response: %v", err), Status: r.Status, Err: err}
	}
	return nil
}

// CSRFRejected reports a 403 whose body carries a CSRF rejection code.
func (r *RawResponse) CSRFRejected() bool {
	if r == nil || r.Status != http.StatusForbidden {
		return false
	}
	return isCSRFCode(errorCode(r.Body))
}

func isCSRFCode(code string) bool {
	return code == CodeCSRFTokenMissing || code == CodeCSRFTokenInvalid
}

// errorCode extracts error_code from a JSON body. Both the top-level form and the
// nested {"detail": {...}} form are accepted.
func errorCode(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var payload struct {
		ErrorCode string          `json:"error_code"`
		Detail    json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.ErrorCode != "" {
		return payload.ErrorCode
	}
	if len(payload.Detail) > 0 && payload.Detail[0] == '{' {
		var nested struct {
			ErrorCode string `json:"error_code"`
		}
		if err := json.Unmarshal(payload.Detail, &nested); err == nil {
			return nested.ErrorCode
		}
	}
	return ""
}

// ErrorMessage extracts a human-readable message from an API error body, falling back
// to the status text.
func (r *RawResponse) ErrorMessage() string {
	if r == nil {
		return ""
	}

	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(r.Body, &payload); err == nil {
		if msg := rawString(payload.Detail); msg != "" {
			return msg
		}
		if payload.Message != "" {
			return payload.Message
		}
		if msg := rawString(payload.Error); msg != "" {
			return msg
		}
	}

	if text := http.StatusText(r.Status); text != "" {
		return text
	}
	return fmt.Sprintf("unexpected status %d", r.Status)
}

// rawString reads a JSON value that is either a string or an object with a
// message-like field.
func rawString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var obj struct {
		Message string `json:"message"`
		Detail  string `json:"detail"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		if obj.Message != "" {
			return obj.Message
		}
		return obj.Detail
	}
	return ""
}
