package fetch

import (
	"errors"
	"fmt"
)

// ErrorKind classifies why a fetch did not produce a usable response.
type ErrorKind string

const (
	// KindTimeout means the request exceeded its deadline.
	KindTimeout ErrorKind = "timeout"
	// KindNetwork covers transport failures: DNS, refused connections, resets.
	KindNetwork ErrorKind = "network"
	// KindCSRFRejected means the backend still rejected the CSRF token after the single retry.
	KindCSRFRejected ErrorKind = "csrf_rejected"
	// KindStale labels results discarded by a guard. It is never reported to users.
	KindStale ErrorKind = "stale"
	// KindStatus is an API-level failure (non-2xx) interpreted by a data client.
	KindStatus ErrorKind = "status"
	// KindDecode means the response body could not be decoded.
	KindDecode ErrorKind = "decode"
)

// TimeoutMessage is the user-facing message for KindTimeout.
const TimeoutMessage = "Request timeout: server did not respond"

// Error is the typed failure returned by the coordinator and the data clients built on it.
type Error struct {
	Kind    ErrorKind
	Message string
	// Status is the HTTP status for KindStatus and KindCSRFRejected, zero otherwise.
	Status int
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return "fetch error"
	}
	if e.Status > 0 {
		return fmt.Sprintf("%s (status %d): %s", e.Kind, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches another *Error by kind, so errors.Is(err, &Error{Kind: KindTimeout}) works.
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) || e == nil || other == nil {
		return false
	}
	return e.Kind == other.Kind
}

// Sentinels for errors.Is checks.
var (
	ErrTimeout      = &Error{Kind: KindTimeout}
	ErrNetwork      = &Error{Kind: KindNetwork}
	ErrCSRFRejected = &Error{Kind: KindCSRFRejected}
	ErrStatus       = &Error{Kind: KindStatus}
	ErrDecode       = &Error{Kind: KindDecode}
)

// KindOf returns the kind of err. Errors that did not come from this package are
// reported as KindNetwork, the catch-all for failures below the API layer.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) && fe != nil {
		return fe.Kind
	}
	return KindNetwork
}

// MessageOf returns the user-facing message carried by err.
func MessageOf(err error) string {
	if err == nil {
		return ""
	}
	var fe *Error
	if errors.As(err, &fe) && fe != nil && fe.Message != "" {
		return fe.Message
	}
	return err.Error()
}

func timeoutError(err error) *Error {
	return &Error{Kind: KindTimeout, Message: TimeoutMessage, Err: err}
}

func networkError(err error) *Error {
	return &Error{Kind: KindNetwork, Message: err.Error(), Err: err}
}
