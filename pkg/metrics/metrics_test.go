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

func TestRecordCompute(t *testing.T) {
	Register()
	Register()

	before := testutil.ToFloat64(computeCounter.WithLabelValues("test-a"))
	RecordCompute("test-a", 25, 3*time.Millisecond)
	RecordCompute("test-a", 0, time.Millisecond)

	assert.Equal(t, before+2, testutil.ToFloat64(computeCounter.WithLabelValues("test-a")))
}

func TestRecordSubmit(t *testing.T) {
	Register()

	RecordSubmit("test-b", "OK", 5*time.Millisecond)
	RecordSubmit("", "Unavailable", time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(submitCounter.WithLabelValues("test-b", "OK")))
	assert.Equal(t, 1.0, testutil.ToFloat64(submitCounter.WithLabelValues("", "Unavailable")))
}

func TestHandler(t *testing.T) {
	Register()
	SetBackends(3)
	RecordComputeError("test-c", "InvalidArgument")

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "numbers_frontend_backends 3")
	assert.True(t, strings.Contains(body, `numbers_service_compute_error_total{code="InvalidArgument",instance="test-c"} 1`))
}
