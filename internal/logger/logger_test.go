package logger_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Stoky555/ownership-graph/internal/logger"
)

func TestNew(t *testing.T) {
	for _, mode := range []string{"production", "development", ""} {
		l, err := logger.New(mode, "debug")
		require.NoError(t, err, mode)
		assert.True(t, l.Zap().Core().Enabled(zapcore.DebugLevel))
	}

	l, err := logger.New("production", "")
	require.NoError(t, err)
	assert.False(t, l.Zap().Core().Enabled(zapcore.DebugLevel))

	_, err = logger.New("production", "loud")
	assert.Error(t, err)
}

func TestRedactsSecrets(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := logger.FromZap(zap.New(core))

	l.With("component", "store").Info("connecting", "dsn", "postgres://u:p@h/db", "driver", "pgx", "DB_Password", "x")

	require.Equal(t, 1, logs.Len())
	fields := logs.All()[0].ContextMap()
	assert.Equal(t, "[REDACTED]", fields["dsn"])
	assert.Equal(t, "[REDACTED]", fields["DB_Password"])
	assert.Equal(t, "pgx", fields["driver"])
	assert.Equal(t, "store", fields["component"])
}

func TestNop(t *testing.T) {
	l := logger.Nop()
	l.Debug("ignored")
	l.Warn("ignored", "k", "v")
	l.Error("ignored")
	l.Sync()
}
