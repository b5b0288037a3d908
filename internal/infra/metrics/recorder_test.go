package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounters(t *testing.T) {
	r := NewRecorder()

	r.AddFetched(10)
	r.AddFetched(5)
	r.AddInserted(3)
	r.SetBackupRecords(42)
	r.AddDiscrepancies("missing", 2)
	r.AddDiscrepancies("field", 1)

	assert.Equal(t, float64(15), testutil.ToFloat64(r.leadsFetched))
	assert.Equal(t, float64(3), testutil.ToFloat64(r.leadsInserted))
	assert.Equal(t, float64(42), testutil.ToFloat64(r.backupRecords))
	assert.Equal(t, float64(2), testutil.ToFloat64(r.discrepancies.WithLabelValues("missing")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.discrepancies.WithLabelValues("field")))
}

func TestRecordRun(t *testing.T) {
	r := NewRecorder()
	at := time.Unix(1700000000, 0)

	r.RecordRun(false, at)
	r.RecordRun(true, at.Add(time.Hour))

	assert.Equal(t, float64(1), testutil.ToFloat64(r.runsTotal.WithLabelValues("success")))
	assert.Equal(t, float64(1), testutil.ToFloat64(r.runsTotal.WithLabelValues("failure")))
	assert.Equal(t, float64(1700000000), testutil.ToFloat64(r.lastRunSuccess))
}

func TestObserveStage(t *testing.T) {
	r := NewRecorder()
	r.ObserveStage("extract", false, 2*time.Second)
	r.ObserveStage("load", true, time.Second)

	n, err := testutil.GatherAndCount(r.Registry(), "leadsync_stage_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestPush(t *testing.T) {
	var gotPath, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		gotPath, gotMethod = req.URL.Path, req.Method
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	r := NewRecorder()
	r.AddFetched(1)

	require.NoError(t, r.Push(context.Background(), srv.URL, "leadsync"))
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/metrics/job/leadsync", gotPath)
}

func TestPushFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	assert.Error(t, NewRecorder().Push(context.Background(), srv.URL, "leadsync"))
}
