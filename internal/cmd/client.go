package cmd

import (
	"context"
	"fmt"
	"sync"

	"github.com/fulmenhq/gofulmen/logging"
	"go.uber.org/zap"

	"github.com/yukyu/yukyu/internal/config"
	"github.com/yukyu/yukyu/internal/fetch"
	"github.com/yukyu/yukyu/internal/observability"
	"github.com/yukyu/yukyu/internal/yukyu"
)

// newCoordinator builds the fetch coordinator described by cfg.
func newCoordinator(cfg *config.Config, logger *logging.Logger) *fetch.Coordinator {
	userAgent := cfg.API.UserAgent
	if userAgent == "" && appIdentity != nil {
		userAgent = fmt.Sprintf("%s/%s", appIdentity.BinaryName, versionInfo.Version)
	}
	return fetch.New(fetch.Options{
		BaseURL:        cfg.API.BaseURL,
		DefaultTimeout: cfg.API.DefaultTimeout,
		CSRFTokenTTL:   cfg.API.CSRFTokenTTL,
		CSRFTokenPath:  cfg.API.CSRFTokenPath,
		UserAgent:      userAgent,
		RateLimit:      cfg.API.RateLimit.RPS,
		RateBurst:      cfg.API.RateLimit.Burst,
		Tracing:        cfg.API.Tracing,
		Logger:         logger,
	})
}

// openService loads config and returns a service over a fresh coordinator.
func openService(ctx context.Context) (*yukyu.Service, *fetch.Coordinator, *config.Config, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	logger := observability.Active()
	coordinator := newCoordinator(cfg, logger)
	return yukyu.NewService(yukyu.NewClient(coordinator), logger), coordinator, cfg, nil
}

// cliNotifier turns guard callbacks into a command result: the failure is kept
// for the command to return, success messages go to the CLI logger.
type cliNotifier struct {
	mu     sync.Mutex
	logger *logging.Logger
	err    error
}

func newCLINotifier() *cliNotifier {
	return &cliNotifier{logger: observability.CLILogger}
}

func (n *cliNotifier) NotifyError(kind fetch.ErrorKind, message string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.err = &fetch.Error{Kind: kind, Message: message}
}

func (n *cliNotifier) NotifySuccess(message string) {
	if n.logger != nil {
		n.logger.Info(message)
	}
}

// Err returns the reported failure, if any.
func (n *cliNotifier) Err() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.err
}

// debugOutcome logs a guarded fetch outcome at debug level.
func debugOutcome(operation string, outcome fmt.Stringer, fields ...zap.Field) {
	if observability.CLILogger == nil {
		return
	}
	fields = append([]zap.Field{zap.String("operation", operation), zap.String("outcome", outcome.String())}, fields...)
	observability.CLILogger.Debug("Guarded fetch settled", fields...)
}
