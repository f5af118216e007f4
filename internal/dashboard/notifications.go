package dashboard

import (
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/yukyu/yukyu/internal/fetch"
)

// DefaultNotificationCapacity bounds the notification history.
const DefaultNotificationCapacity = 50

// Notification levels.
const (
	LevelError   = "error"
	LevelSuccess = "success"
)

// Notification is one user-facing message.
type Notification struct {
	Level   string          `json:"level"`
	Kind    fetch.ErrorKind `json:"kind,omitempty"`
	Message string          `json:"message"`
	At      time.Time       `json:"at"`
}

// Notifications is a bounded history of messages. It implements guard.Notifier
// and guard.SuccessNotifier.
type Notifications struct {
	mu     sync.Mutex
	items  []Notification
	next   int
	full   bool
	logger *logging.Logger
	clock  func() time.Time
}

// NewNotifications returns a history holding at most capacity entries. A
// non-positive capacity uses DefaultNotificationCapacity.
func NewNotifications(capacity int, logger *logging.Logger) *Notifications {
	if capacity <= 0 {
		capacity = DefaultNotificationCapacity
	}
	return &Notifications{
		items:  make([]Notification, capacity),
		logger: logger,
		clock:  func() time.Time { return time.Now().UTC() },
	}
}

// NotifyError records a failure. The stored notification is the report; the
// logger only sees it at debug level.
func (n *Notifications) NotifyError(kind fetch.ErrorKind, message string) {
	if n.logger != nil {
		n.logger.Debug("Dashboard error", zap.String("kind", string(kind)), zap.String("message", message))
	}
	n.push(Notification{Level: LevelError, Kind: kind, Message: message})
}

// NotifySuccess records a completed operation.
func (n *Notifications) NotifySuccess(message string) {
	if n.logger != nil {
		n.logger.Debug("Dashboard notice", zap.String("message", message))
	}
	n.push(Notification{Level: LevelSuccess, Message: message})
}

func (n *Notifications) push(item Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()

	item.At = n.clock()
	n.items[n.next] = item
	n.next = (n.next + 1) % len(n.items)
	if n.next == 0 {
		n.full = true
	}
}

// List returns the history, oldest first.
func (n *Notifications) List() []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()

	if !n.full {
		return append([]Notification(nil), n.items[:n.next]...)
	}
	out := make([]Notification, 0, len(n.items))
	out = append(out, n.items[n.next:]...)
	return append(out, n.items[:n.next]...)
}

// Len reports how many notifications are held.
func (n *Notifications) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.full {
		return len(n.items)
	}
	return n.next
}

// Latest returns the newest notification at level, if any.
func (n *Notifications) Latest(level string) (Notification, bool) {
	items := n.List()
	for i := len(items) - 1; i >= 0; i-- {
		if items[i].Level == level {
			return items[i], true
		}
	}
	return Notification{}, false
}
