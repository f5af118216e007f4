package observability_test

import (
	"testing"

	"github.com/fulmenhq/gofulmen/crucible"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/yukyu/yukyu/internal/observability"
)

func TestLoggers(t *testing.T) {
	t.Run("CLI logger", func(t *testing.T) {
		observability.InitCLILogger("yukyu-test", true)
		require.NotNil(t, observability.CLILogger)
		observability.CLILogger.Debug("verbose CLI message", zap.String("test", "value"))
	})

	t.Run("Server logger", func(t *testing.T) {
		logger, err := observability.NewServerLogger("yukyu-test", "debug", "yukyu")
		require.NoError(t, err)
		require.NotNil(t, logger)
		logger.Info("structured message", zap.String("component", "test"))
	})

	t.Run("Active prefers server logger", func(t *testing.T) {
		previous := observability.ServerLogger
		t.Cleanup(func() { observability.ServerLogger = previous })

		observability.ServerLogger = nil
		observability.InitCLILogger("yukyu-test", false)
		assert.Same(t, observability.CLILogger, observability.Active())

		observability.InitServerLogger("yukyu-test", "info")
		assert.Same(t, observability.ServerLogger, observability.Active())
	})
}

func TestEmbeddedCrucibleVersion(t *testing.T) {
	version := crucible.GetVersion()
	assert.NotEmpty(t, version.Gofulmen)
	assert.NotEmpty(t, version.Crucible)
	assert.NotEmpty(t, crucible.GetVersionString())
}
