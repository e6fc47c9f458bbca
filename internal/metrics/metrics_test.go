package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simonhull/crucible/internal/report"
)

func invalidReport() *report.Report {
	b := report.NewBuilder()
	b.Add(
		report.Errorf(report.RuleModuleNotFound, "api.dependencies.db", "module db is not defined"),
		report.Errorf(report.RuleModuleNotFound, "web.dependencies.db", "module db is not defined"),
		report.Warnf(report.RuleDeclaredDependencies, "api.dependencies.log", "dependency log is never used"),
	)
	return b.Build(false)
}

func TestRecorder_Observe(t *testing.T) {
	r := NewRecorder()
	r.Observe(invalidReport(), 20*time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runs))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.valid))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.issues.WithLabelValues(report.RuleModuleNotFound, "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.issues.WithLabelValues(report.RuleDeclaredDependencies, "warning")))
	assert.Equal(t, 1, testutil.CollectAndCount(r.duration))
}

func TestRecorder_IssuesDescribeLastRun(t *testing.T) {
	r := NewRecorder()
	r.Observe(invalidReport(), time.Millisecond)
	r.Observe(report.NewBuilder().Build(false), time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runs))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.valid))
	assert.Equal(t, 0, testutil.CollectAndCount(r.issues))
}

func TestRecorder_WriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.Observe(invalidReport(), 5*time.Millisecond)

	path := filepath.Join(t.TempDir(), "crucible.prom")
	require.NoError(t, r.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "crucible_validation_runs_total 1")
	assert.Contains(t, text, `crucible_validation_issues{rule="module-not-found",severity="error"} 2`)
	assert.Contains(t, text, "crucible_validation_valid 0")
	assert.Contains(t, text, "crucible_validation_duration_seconds_count 1")
}

func TestRecorder_WriteTextfileError(t *testing.T) {
	r := NewRecorder()
	err := r.WriteTextfile(filepath.Join(t.TempDir(), "missing", "crucible.prom"))
	assert.Error(t, err)
}
