package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	m := New(func() int { return 3 })

	m.Login(true)
	m.Login(false)
	m.Login(false)
	m.Assessment("HIGH")
	m.Failure("model_unavailable")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.logins.WithLabelValues("accepted")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.logins.WithLabelValues("rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.assessments.WithLabelValues("HIGH")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("model_unavailable")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.sessions))
}

func TestHandler(t *testing.T) {
	m := New(nil)
	m.Assessment("LOW")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `healthrisk_assessments_total{label="LOW"} 1`)
	assert.NotContains(t, w.Body.String(), "healthrisk_sessions_active")
}
