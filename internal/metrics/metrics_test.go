package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/draft-agent/internal/models"
)

func TestHooksRecordRun(t *testing.T) {
	m := New(prometheus.NewRegistry())
	h := m.Hooks()

	h.OnRunStart()
	assert.Equal(t, 1.0, testutil.ToFloat64(m.inFlight))

	h.OnStageEnd(models.StageResearch, models.StatusCompleted, 120*time.Millisecond)
	h.OnStageEnd(models.StageAnalyze, models.StatusError, 2*time.Second)
	h.OnRunEnd(models.OutcomeCompleted)

	assert.Equal(t, 0.0, testutil.ToFloat64(m.inFlight))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("completed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacks.WithLabelValues("analyze")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.fallbacks.WithLabelValues("research")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.stageDuration))
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New(nil)
	m.Hooks().OnRunStart()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "draftagent_runs_in_flight 1")
}
