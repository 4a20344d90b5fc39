package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector_CacheLookups(t *testing.T) {
	c := NewCollector()

	c.ObserveCacheLookup(false)
	c.ObserveCacheLookup(true)
	c.ObserveCacheLookup(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cacheLookups.WithLabelValues("miss")))
}

func TestCollector_Requests(t *testing.T) {
	c := NewCollector()

	c.ObserveRequest("/api/reporting", 200, 25*time.Millisecond)
	c.ObserveRequest("/api/reporting", 200, 40*time.Millisecond)
	c.ObserveRequest("/api/reporting", 500, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.requests.WithLabelValues("/api/reporting", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.requests.WithLabelValues("/api/reporting", "500")))
	assert.Equal(t, 1, testutil.CollectAndCount(c.requestDuration))
}

func TestCollector_ActionItems(t *testing.T) {
	c := NewCollector()
	c.SetActionItems(8)
	assert.Equal(t, 8.0, testutil.ToFloat64(c.actionItems))
}

func TestCollector_Handler(t *testing.T) {
	c := NewCollector()
	c.ObserveCacheLookup(true)
	c.SetActionItems(3)

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	require.Equal(t, 200, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	text := string(body)
	assert.True(t, strings.Contains(text, `ctgov_query_cache_lookups_total{result="hit"} 1`), text)
	assert.Contains(t, text, "ctgov_reporting_action_items 3")
	assert.Contains(t, text, "go_goroutines")
}

func TestCollector_SeparateRegistries(t *testing.T) {
	// Each collector owns its registry, so building two must not panic
	a, b := NewCollector(), NewCollector()
	assert.NotSame(t, a.Registry(), b.Registry())
}
