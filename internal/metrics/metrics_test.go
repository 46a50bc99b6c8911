package metrics

import (
	stderrors "errors"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(WithRegistry(reg))

	r.AddFilesHashed(3)
	r.ObserveStage("collecting", 10*time.Millisecond)
	r.RecordRun("generate", nil, 3, 1024, 2)
	r.RecordRun("generate", stderrors.New("boom"), 0, 0, 1)

	if got := testutil.ToFloat64(r.runsTotal.WithLabelValues("generate", "success")); got != 1 {
		t.Errorf("runs_total{success} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.runsTotal.WithLabelValues("generate", "error")); got != 1 {
		t.Errorf("runs_total{error} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(r.manifestEntries); got != 3 {
		t.Errorf("manifest_entries = %v, want 3 (failed runs leave it alone)", got)
	}
	if got := testutil.ToFloat64(r.manifestBytes); got != 1024 {
		t.Errorf("manifest_bytes = %v, want 1024", got)
	}
	if got := testutil.ToFloat64(r.warningsTotal); got != 3 {
		t.Errorf("warnings_total = %v, want 3", got)
	}
	if got := testutil.ToFloat64(r.filesHashed); got != 3 {
		t.Errorf("files_hashed_total = %v, want 3", got)
	}
	if n := testutil.CollectAndCount(r.stageDuration); n != 1 {
		t.Errorf("stage_duration_seconds series = %d, want 1", n)
	}
}

func TestRecorder_Names(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := New(WithRegistry(reg), WithNamespace("site"), WithConstLabels(prometheus.Labels{"app": "docs"}))
	r.RecordRun("manifest", nil, 1, 1, 0)

	expected := `
# HELP site_manifest_entries Number of entries in the last manifest
# TYPE site_manifest_entries gauge
site_manifest_entries{app="docs"} 1
`
	if err := testutil.GatherAndCompare(reg, strings.NewReader(expected), "site_manifest_entries"); err != nil {
		t.Error(err)
	}
}

func TestRecorder_Nil(t *testing.T) {
	var r *Recorder
	r.AddFilesHashed(1)
	r.ObserveStage("x", time.Second)
	r.RecordRun("generate", nil, 1, 1, 1)
}
