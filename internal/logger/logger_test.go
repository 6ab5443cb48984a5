package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "Production", ""} {
		l, err := New(mode)
		require.NoError(t, err, mode)
		require.NotNil(t, l.SugaredLogger)
	}
}

func TestLogger_WithAndNamed(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	l := &Logger{SugaredLogger: zap.New(core).Sugar()}

	l.Named("pipeline").With("run_id", "abc").Info("phase done", "rows", 42)
	l.Warn("skipped write", "table", "fact_ltv_cohort")

	entries := logs.All()
	require.Len(t, entries, 2)

	assert.Equal(t, "pipeline", entries[0].LoggerName)
	assert.Equal(t, "phase done", entries[0].Message)
	fields := entries[0].ContextMap()
	assert.Equal(t, "abc", fields["run_id"])
	assert.EqualValues(t, 42, fields["rows"])

	assert.Equal(t, zap.WarnLevel, entries[1].Level)
}

func TestNewNop(t *testing.T) {
	l := NewNop()
	l.Info("discarded", "k", "v")
	l.Sync()
}
