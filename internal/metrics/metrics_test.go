package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder("cpu")
	r.ObserveSkip()
	r.ObserveSkip()
	r.ObserveStep(1, time.Millisecond)

	assert.Equal(t, 3.0, testutil.ToFloat64(r.Frames))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Steps))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.SkippedFrames))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.Step))
}

func TestNilRecorderIsSafe(t *testing.T) {
	var r *Recorder
	r.ObserveSkip()
	r.ObserveStep(3, time.Second)
}

func TestHandlerExposesMetrics(t *testing.T) {
	r := NewRecorder("cpu")
	r.ObserveStep(4, time.Millisecond)

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `life_steps_total{backend="cpu"} 1`), body)
	assert.True(t, strings.Contains(body, `life_step{backend="cpu"} 4`), body)
}
