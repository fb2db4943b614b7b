package metrics

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ObserveLoad(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	r := NewRegistry()

	r.ObserveLoad(nil, time.Second)
	r.ObserveLoad(nil, time.Second)
	r.ObserveLoad(errors.New("boom"), time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(r.Loads.WithLabelValues(ResultSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(r.Loads.WithLabelValues(ResultFailure)), 0)
}

func TestRegistry_ObserveSnapshot(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	r := NewRegistry()
	loadedAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	r.ObserveSnapshot(42, loadedAt)
	r.ObserveDrop("line_item", "orphan_line_item", 3)
	r.ObserveDrop("line_item", "orphan_line_item", 0)

	assert.InDelta(t, 42, testutil.ToFloat64(r.FactRows), 0)
	assert.InDelta(t, float64(loadedAt.Unix()), testutil.ToFloat64(r.LastLoadUnixTS), 0)
	assert.InDelta(t, 3, testutil.ToFloat64(r.Dropped.WithLabelValues("line_item", "orphan_line_item")), 0)

	r.ResetSnapshot()
	assert.Zero(t, testutil.ToFloat64(r.FactRows))
}

func TestRegistry_NilIsNoop(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	var r *Registry

	assert.NotPanics(t, func() {
		r.ObserveLoad(nil, time.Second)
		r.ObserveSnapshot(1, time.Now())
		r.ObserveDrop("fact", "missing_identifier", 1)
		r.ObserveView(time.Millisecond, true)
		r.ResetSnapshot()
	})

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegistry_Handler(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	r := NewRegistry()
	r.ObserveView(time.Millisecond, true)

	srv := httptest.NewServer(r.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), "salesdash_stale_views_total 1"))
}
