package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fulmenhq/gofulmen/appidentity"

	"github.com/yukyu/yukyu/internal/dashboard"
	"github.com/yukyu/yukyu/internal/fetch"
	"github.com/yukyu/yukyu/internal/observability"
)

// TokenSource is the part of fetch.Coordinator used to probe the backend.
type TokenSource interface {
	GetCSRFToken(ctx context.Context) (fetch.CSRFToken, error)
}

// BackendChecker passes when a CSRF token can be obtained. A cached, unexpired
// token counts, so the probe only reaches the backend once per token lifetime.
func BackendChecker(source TokenSource) HealthChecker {
	return CheckerFunc(func(ctx context.Context) error {
		if source == nil {
			return errors.New("backend client not configured")
		}
		_, err := source.GetCSRFToken(ctx)
		return err
	})
}

// SnapshotChecker fails when no employees snapshot was applied within maxAge.
// A zero maxAge only requires that some snapshot exists.
func SnapshotChecker(state *dashboard.State, maxAge time.Duration) HealthChecker {
	return CheckerFunc(func(ctx context.Context) error {
		snapshot := state.Employees()
		if snapshot == nil {
			return errors.New("no employees snapshot yet")
		}
		if maxAge > 0 {
			if age := time.Since(snapshot.AppliedAt); age > maxAge {
				return fmt.Errorf("employees snapshot is %s old", age.Round(time.Second))
			}
		}
		return nil
	})
}

// TelemetryChecker passes when the telemetry system is initialized.
func TelemetryChecker() HealthChecker {
	return CheckerFunc(func(ctx context.Context) error {
		if observability.TelemetrySystem == nil {
			return errors.New("telemetry not initialized")
		}
		return nil
	})
}

// IdentityChecker passes when an app identity with a binary name is loaded.
func IdentityChecker(identity *appidentity.Identity) HealthChecker {
	return CheckerFunc(func(ctx context.Context) error {
		if identity == nil || identity.BinaryName == "" {
			return errors.New("app identity not loaded")
		}
		return nil
	})
}
