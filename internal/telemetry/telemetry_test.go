package telemetry

import (
	"bytes"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rustyeddy/riskengine/risk"
	"github.com/rustyeddy/riskengine/trade"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  zapcore.Level
	}{
		{"debug", zapcore.DebugLevel},
		{"DEBUG", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"warning", zapcore.WarnLevel},
		{" error ", zapcore.ErrorLevel},
		{"invalid", zapcore.InfoLevel},
		{"", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.input, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseLevel(tt.input))
		})
	}
}

func TestNewLoggerToFiltersByLevel(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := NewLoggerTo(&buf, "warn")

	log.Info("dropped", zap.String("symbol", "BTCUSDT"))
	log.Warn("kept", zap.String("symbol", "ETHUSDT"))
	require.NoError(t, log.Sync())

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"kept"`)
	assert.Contains(t, out, `"symbol":"ETHUSDT"`)
	assert.Contains(t, out, `"level":"warn"`)
}

func TestRecorderDecision(t *testing.T) {
	t.Parallel()

	r := NewRecorder()

	r.Decision(risk.Result{Allowed: true, Level: trade.RiskLow}, 2*time.Millisecond)
	r.Decision(risk.Result{
		Allowed: true,
		Level:   trade.RiskMedium,
		Flags:   []risk.Flag{risk.FlagHighVolatility},
	}, time.Millisecond)
	r.Decision(risk.Result{
		Allowed: false,
		Level:   trade.RiskCritical,
		Flags:   []risk.Flag{risk.FlagKillSwitch},
	}, 500*time.Microsecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.decisions.WithLabelValues("true", "LOW")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.decisions.WithLabelValues("true", "MEDIUM")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.decisions.WithLabelValues("false", "CRITICAL")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.flags.WithLabelValues("HIGH_VOLATILITY")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.flags.WithLabelValues("KILL_SWITCH_ACTIVE")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.latency))

	n, err := testutil.GatherAndCount(r.Registry, "riskengine_gate_decisions_total")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestRecorderError(t *testing.T) {
	t.Parallel()

	r := NewRecorder()
	r.Error("journal")
	r.Error("journal")
	r.Error("indicators")

	assert.Equal(t, 2.0, testutil.ToFloat64(r.errors.WithLabelValues("journal")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errors.WithLabelValues("indicators")))
}

func TestNilRecorder(t *testing.T) {
	t.Parallel()

	var r *Recorder
	assert.NotPanics(t, func() {
		r.Decision(risk.Result{}, time.Millisecond)
		r.Error("plan")
	})
}

func TestRecordersAreIndependent(t *testing.T) {
	t.Parallel()

	a, b := NewRecorder(), NewRecorder()
	a.Error("plan")
	assert.Equal(t, 0.0, testutil.ToFloat64(b.errors.WithLabelValues("plan")))
}
