package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/s0up4200/pikfront/backend"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveBackendRequest(t *testing.T) {
	ok := backendRequestsTotal.WithLabelValues("quota_test", "200")
	failed := backendRequestsTotal.WithLabelValues("quota_test", "error")
	beforeOK, beforeFailed := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	ObserveBackendRequest("quota_test", 200, 15*time.Millisecond)
	ObserveBackendRequest("quota_test", 0, time.Second)

	assert.Equal(t, beforeOK+1, testutil.ToFloat64(ok))
	assert.Equal(t, beforeFailed+1, testutil.ToFloat64(failed))
}

func TestRecordPollTick(t *testing.T) {
	before := testutil.ToFloat64(pollTicksTotal)
	RecordPollTick()
	RecordPollTick()
	assert.Equal(t, before+2, testutil.ToFloat64(pollTicksTotal))
}

func TestSetTaskCounts(t *testing.T) {
	SetTaskCounts([]backend.Task{
		{ID: "1", Phase: backend.PhaseRunning},
		{ID: "2", Phase: backend.PhaseRunning},
		{ID: "3", Phase: backend.PhaseError},
	})
	assert.Equal(t, 2.0, testutil.ToFloat64(tasksByPhase.WithLabelValues("running")))
	assert.Equal(t, 1.0, testutil.ToFloat64(tasksByPhase.WithLabelValues("error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(tasksByPhase.WithLabelValues("complete")))

	SetTaskCounts(nil)
	assert.Equal(t, 0.0, testutil.ToFloat64(tasksByPhase.WithLabelValues("running")))
}

func TestHandlerExposesMetrics(t *testing.T) {
	RecordPollTick()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pikfront_poll_ticks_total")
}
