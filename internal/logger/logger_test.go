package logger_test

import (
	"bufio"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/batamp/batamp-explorer/internal/logger"
)

func TestLogLevels(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		level    logger.LogLevel
		log      func(l logger.Logger, msg string)
		expected bool
	}{
		{"debug at debug", logger.LogLevelDebug, func(l logger.Logger, m string) { l.Debug(m) }, true},
		{"debug at info", logger.LogLevelInfo, func(l logger.Logger, m string) { l.Debug(m) }, false},
		{"info at info", logger.LogLevelInfo, func(l logger.Logger, m string) { l.Info(m) }, true},
		{"warn at info", logger.LogLevelInfo, func(l logger.Logger, m string) { l.Warn(m) }, true},
		{"info at error", logger.LogLevelError, func(l logger.Logger, m string) { l.Info(m) }, false},
		{"error at error", logger.LogLevelError, func(l logger.Logger, m string) { l.Error(m) }, true},
		{"trace at debug", logger.LogLevelDebug, func(l logger.Logger, m string) { l.Trace(m) }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var buf bytes.Buffer
			tt.log(logger.NewSlogLogger(&buf, tt.level), "dimension indexed")
			assert.Equal(t, tt.expected, bytes.Contains(buf.Bytes(), []byte("dimension indexed")), buf.String())
		})
	}
}

func TestModuleAndFields(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.NewSlogLogger(&buf, logger.LogLevelDebug).
		Module("crossfilter").
		Module("engine").
		With(logger.String("session_id", "abc"))

	log.Info("aggregate recomputed",
		logger.Float64("filtered_total", 1.23456),
		logger.Duration("elapsed", 1500*time.Microsecond),
		logger.Int("dimensions_recomputed", 3))

	out := buf.String()
	assert.Contains(t, out, "module=crossfilter.engine")
	assert.Contains(t, out, "session_id=abc")
	assert.Contains(t, out, "filtered_total=1.235")
	assert.Contains(t, out, "elapsed=1.5ms")
	assert.Contains(t, out, "dimensions_recomputed=3")
	assert.NotContains(t, out, "time=")
}

func TestCentralLoggerFileOutput(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "logs", "batamp.log")
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		Console:      &logger.ConsoleOutput{Enabled: false},
		FileOutput:   &logger.FileOutput{Enabled: true, Path: path, Level: "debug"},
		ModuleLevels: map[string]string{"crossfilter": "debug"},
	})
	require.NoError(t, err)

	cl.Module("crossfilter").Debug("session created", logger.Int("records", 3))
	cl.Module("views").Debug("detail computed")
	cl.Module("views").Warn("cache miss storm")
	require.NoError(t, cl.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var lines []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var line map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &line))
		lines = append(lines, line)
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 2)

	assert.Equal(t, "crossfilter", lines[0]["module"])
	assert.Equal(t, "session created", lines[0]["msg"])
	assert.InDelta(t, 3.0, lines[0]["records"], 0)
	assert.Equal(t, "views", lines[1]["module"])
	assert.Equal(t, "WARN", lines[1]["level"])

	ts, ok := lines[0]["time"].(string)
	require.True(t, ok)
	_, err = time.Parse(time.RFC3339, ts)
	assert.NoError(t, err)
}

func TestCentralLoggerInvalidTimezone(t *testing.T) {
	t.Parallel()

	_, err := logger.NewCentralLogger(&logger.LoggingConfig{Timezone: "Mars/Olympus_Mons"})
	require.Error(t, err)

	_, err = logger.NewCentralLogger(nil)
	require.Error(t, err)
}

func TestGormAdapterLogsQueryErrors(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	adapter := logger.NewGormLoggerAdapter(logger.NewSlogLogger(&buf, logger.LogLevelInfo), time.Second)

	fc := func() (string, int64) { return "INSERT INTO detectors", 0 }
	adapter.Trace(t.Context(), time.Now(), fc, os.ErrPermission)
	assert.Contains(t, buf.String(), "query error")
	assert.Contains(t, buf.String(), "INSERT INTO detectors")

	buf.Reset()
	adapter.Trace(t.Context(), time.Now(), fc, nil)
	assert.Empty(t, buf.String())

	buf.Reset()
	adapter.Trace(t.Context(), time.Now().Add(-2*time.Second), fc, nil)
	assert.Contains(t, buf.String(), "slow query")
}
