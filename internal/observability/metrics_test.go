package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRecordAndServe(t *testing.T) {
	m := NewMetrics("chat")
	// A second instance must not collide on registration.
	_ = NewMetrics("chat")

	m.ObserveSubmission("generate", "ok")
	m.ObserveSubmission("generate", "ok")
	m.ObserveSubmission("plain", "invalid-argument")
	m.ObserveGeneration(120*time.Millisecond, nil)
	m.ObserveGeneration(time.Second, errors.New("boom"))
	m.ObserveResetDelete(false)
	m.ObserveResetDelete(true)
	m.ObserveChangeBatch("rabbitmq")
	m.LiveSubscribers.Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues("generate", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.GenerationFailures))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.ResetDeletes.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LiveSubscribers))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `chat_submissions_total{code="invalid-argument",mode="plain"} 1`)
	assert.Contains(t, rec.Body.String(), "chat_change_batches_total")
}
