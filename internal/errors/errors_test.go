package errors

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(ee *EnhancedError) {
	r.reported = append(r.reported, ee)
	ee.MarkReported()
}

func (r *recordingReporter) IsEnabled() bool { return true }

var errSentinel = NewStd("sentinel")

func TestBuildFastPath(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.IsReported())
}

func TestBuildKeepsSentinelReachable(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := Newf("dimension %q: %w", "habitat", errSentinel).
		Component("crossfilter").
		Category(CategoryConfiguration).
		Context("field", "habitat").
		Build()

	require.Error(t, ee)
	assert.ErrorIs(t, ee, errSentinel)
	assert.True(t, IsCategory(ee, CategoryConfiguration))
	assert.False(t, IsNotFound(ee))
	assert.Equal(t, "crossfilter", ee.GetComponent())
	assert.Equal(t, map[string]any{"field": "habitat"}, ee.GetContext())
}

func TestBuildInheritsWrappedCategory(t *testing.T) {
	SetTelemetryReporter(nil)

	inner := New(errSentinel).Category(CategoryFileParsing).Build()
	outer := Newf("load: %w", inner).Build()

	assert.Equal(t, CategoryFileParsing, outer.Category)
}

func TestBuildReportsWhenReporterActive(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	ee := New(errSentinel).Category(CategoryDatabase).Build()

	require.Len(t, reporter.reported, 1)
	assert.Same(t, ee, reporter.reported[0])
	assert.True(t, ee.IsReported())
}

func TestFieldAndOperationContext(t *testing.T) {
	t.Parallel()

	ee := New(errSentinel).
		Field("species").
		Operation("set_filter", 1500*time.Millisecond).
		Build()

	ctx := ee.GetContext()
	assert.Equal(t, "species", ctx["field"])
	assert.Equal(t, "set_filter", ctx["operation"])
	assert.Equal(t, int64(1500), ctx["duration_ms"])

	ctx = New(errSentinel).Operation("load", 0).Build().GetContext()
	assert.NotContains(t, ctx, "duration_ms")
}

func TestScrubMessageForPrivacy(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      string
		absent  string
		present string
	}{
		{"query string", "fetch https://example.org/data.feather?token=abc", "token=abc", "[REDACTED]"},
		{"api key", "config error: api_key=secret123 is invalid", "secret123", "[API_KEY_REDACTED]"},
		{"home dir", "open /home/alice/data/detectors.feather: no such file", "alice", "/home/[USER]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := scrubMessageForPrivacy(tt.in)
			assert.NotContains(t, got, tt.absent)
			assert.Contains(t, got, tt.present)
		})
	}
}

func TestGenerateErrorTitle(t *testing.T) {
	t.Parallel()

	ee := &EnhancedError{
		Err:      errSentinel,
		Category: CategoryFileParsing,
		Context:  map[string]any{"operation": "read_feather"},
	}

	assert.Equal(t, "Loader File Parsing Error Read Feather", generateErrorTitle(ee, "loader"))
	assert.Equal(t, "File Parsing Error Read Feather", generateErrorTitle(ee, ComponentUnknown))
}
