package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/yukyu/yukyu/internal/dashboard"
	apperrors "github.com/yukyu/yukyu/internal/errors"
	"github.com/yukyu/yukyu/internal/fetch"
	"github.com/yukyu/yukyu/internal/guard"
)

// YearSelector switches the dashboard year and starts a guarded fetch.
type YearSelector interface {
	SetYear(ctx context.Context, year int) <-chan guard.Settlement
}

// DashboardHandler serves the dashboard state over HTTP.
type DashboardHandler struct {
	State         *dashboard.State
	Notifications *dashboard.Notifications
	Years         YearSelector
}

// YearSwitchResponse reports what happened to a year switch.
type YearSwitchResponse struct {
	Year      int                          `json:"year"`
	Outcome   string                       `json:"outcome"`
	Employees *dashboard.EmployeesSnapshot `json:"employees,omitempty"`
}

// NotificationsResponse lists recent notifications, oldest first.
type NotificationsResponse struct {
	Notifications []dashboard.Notification `json:"notifications"`
}

// Employees returns the employees snapshot currently on display.
func (h *DashboardHandler) Employees(w http.ResponseWriter, r *http.Request) {
	snapshot := h.State.Employees()
	if snapshot == nil {
		apperrors.RespondWithError(w, r, apperrors.NewServiceUnavailableError("Employees have not been loaded yet"))
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// SelectYear switches to the year in the path. By default it waits for the
// fetch it started; with ?async=true it answers 202 immediately. If a later
// switch wins the race the outcome is "stale" and the snapshot shows the
// winner's data.
func (h *DashboardHandler) SelectYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(chi.URLParam(r, "year"))
	if err != nil || year < 1 {
		apperrors.RespondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "year must be a positive integer"))
		return
	}

	// The fetch must outlive the request when it is not awaited.
	ctx := context.WithoutCancel(r.Context())
	done := h.Years.SetYear(ctx, year)

	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		writeJSON(w, http.StatusAccepted, YearSwitchResponse{Year: year, Outcome: "pending"})
		return
	}

	var settlement guard.Settlement
	select {
	case settlement = <-done:
	case <-r.Context().Done():
		return
	}

	if settlement.Outcome == guard.OutcomeFailed {
		// The notifier already reported this error; answer without logging it again.
		apperrors.RespondWithReportedError(w, r, failureOf(settlement))
		return
	}
	writeJSON(w, http.StatusOK, YearSwitchResponse{
		Year:      year,
		Outcome:   settlement.Outcome.String(),
		Employees: h.State.Employees(),
	})
}

// NotificationsList returns the notification history.
func (h *DashboardHandler) NotificationsList(w http.ResponseWriter, r *http.Request) {
	items := []dashboard.Notification{}
	if h.Notifications != nil {
		items = h.Notifications.List()
	}
	writeJSON(w, http.StatusOK, NotificationsResponse{Notifications: items})
}

func failureOf(settlement guard.Settlement) error {
	if settlement.Err != nil {
		return settlement.Err
	}
	return &fetch.Error{Kind: fetch.KindNetwork, Message: "employees fetch failed"}
}
