package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveOperation(t *testing.T) {
	m := New()
	m.ObserveOperation("submit_score", time.Now(), nil)
	m.ObserveOperation("submit_score", time.Now(), errors.New("boom"))
	m.ObserveOperation("submit_score", time.Now(), nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("submit_score", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("submit_score", "error")))
}

func TestCounters(t *testing.T) {
	m := New()
	m.MatchesGenerated(2)
	m.MatchesGenerated(0)
	m.ScoreSubmitted("kafka")
	m.CacheFailure()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.matchesGenerated))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.scoresSubmitted.WithLabelValues("kafka")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cacheFailures))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveOperation("x", time.Now(), nil)
		m.MatchesGenerated(3)
		m.ScoreSubmitted("http")
		m.CacheFailure()
	})
}

func TestHandler(t *testing.T) {
	m := New()
	m.ScoreSubmitted("http")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `americano_scores_submitted_total{source="http"} 1`))
}
