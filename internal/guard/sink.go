package guard

import "github.com/yukyu/yukyu/internal/fetch"

// RenderSink receives data from the most recently issued request.
type RenderSink[T any] interface {
	Render(data T)
}

// SinkFunc adapts a function to RenderSink.
type SinkFunc[T any] func(data T)

// Render calls f(data).
func (f SinkFunc[T]) Render(data T) {
	f(data)
}

// Notifier receives failures of the most recently issued request.
type Notifier interface {
	NotifyError(kind fetch.ErrorKind, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(kind fetch.ErrorKind, message string)

// NotifyError calls f(kind, message).
func (f NotifierFunc) NotifyError(kind fetch.ErrorKind, message string) {
	f(kind, message)
}

// SuccessNotifier is optionally implemented by notifiers that show
// "operation completed" messages.
type SuccessNotifier interface {
	NotifySuccess(message string)
}

// NotifySuccess forwards message when n supports success notifications.
func NotifySuccess(n Notifier, message string) {
	if s, ok := n.(SuccessNotifier); ok && s != nil {
		s.NotifySuccess(message)
	}
}
