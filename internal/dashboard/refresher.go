package dashboard

import (
	"context"
	"sync"
	"time"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/yukyu/yukyu/internal/guard"
	"github.com/yukyu/yukyu/internal/yukyu"
)

// DefaultRefreshInterval is used when RefresherOptions.Interval is zero.
const DefaultRefreshInterval = 5 * time.Minute

// RefresherOptions configures a Refresher.
type RefresherOptions struct {
	Interval time.Duration
	Year     int
	Logger   *logging.Logger
}

// Refresher keeps State's employees snapshot fresh for the selected year.
type Refresher struct {
	service       *yukyu.Service
	state         *State
	notifications *Notifications
	interval      time.Duration
	logger        *logging.Logger

	mu   sync.Mutex
	year int
}

// NewRefresher wires service to state and notifications.
func NewRefresher(service *yukyu.Service, state *State, notifications *Notifications, opts RefresherOptions) *Refresher {
	interval := opts.Interval
	if interval <= 0 {
		interval = DefaultRefreshInterval
	}
	return &Refresher{
		service:       service,
		state:         state,
		notifications: notifications,
		interval:      interval,
		logger:        opts.Logger,
		year:          opts.Year,
	}
}

// Year returns the selected year.
func (r *Refresher) Year() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.year
}

// SetYear selects year and starts a guarded fetch for it right away. Any fetch
// still in flight for a previously selected year is discarded when it lands.
func (r *Refresher) SetYear(ctx context.Context, year int) <-chan guard.Settlement {
	r.mu.Lock()
	r.year = year
	token := r.service.IssueEmployeesToken()
	r.mu.Unlock()

	r.debug("Year selected", zap.Int("year", year), zap.Uint64("token", uint64(token)))
	return r.service.StartEmployees(ctx, token, year, r.state.EmployeesSink(), r.notifier())
}

// Refresh fetches the selected year and waits for the settlement.
func (r *Refresher) Refresh(ctx context.Context) guard.Settlement {
	// The year and the token are taken together so a concurrent SetYear either
	// lands before (and this fetch loads the new year) or after (and wins).
	r.mu.Lock()
	year := r.year
	token := r.service.IssueEmployeesToken()
	r.mu.Unlock()

	return r.service.RunEmployees(ctx, token, year, r.state.EmployeesSink(), r.notifier())
}

// Run refreshes immediately and then every interval until ctx is done.
func (r *Refresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.debug("Refresher stopped")
			return
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

func (r *Refresher) tick(ctx context.Context) {
	settlement := r.Refresh(ctx)
	r.debug("Refresh finished",
		zap.Int("year", r.Year()),
		zap.Uint64("token", uint64(settlement.Token)),
		zap.String("outcome", settlement.Outcome.String()))
}

func (r *Refresher) notifier() guard.Notifier {
	if r.notifications == nil {
		return nil
	}
	return r.notifications
}

func (r *Refresher) debug(msg string, fields ...zap.Field) {
	if r.logger != nil {
		r.logger.Debug(msg, fields...)
	}
}
