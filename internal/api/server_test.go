package api

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/salesdash-io/salesdash/internal/api/middleware"
	"github.com/salesdash-io/salesdash/internal/ingestion"
	"github.com/salesdash-io/salesdash/internal/metrics"
	"github.com/salesdash-io/salesdash/internal/session"
)

var errSourceDown = errors.New("connection refused")

type testSource struct {
	mu   sync.Mutex
	err  error
	rows map[ingestion.Resource][]ingestion.Record
}

func (f *testSource) Fetch(_ context.Context, resource ingestion.Resource) ([]ingestion.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}

	return f.rows[resource], nil
}

func (f *testSource) fail(err error) {
	f.mu.Lock()
	f.err = err
	f.mu.Unlock()
}

// newTestSource holds one primary order in Germany and one secondary order in
// the USA, plus a secondary header without line items.
func newTestSource() *testSource {
	return &testSource{rows: map[ingestion.Resource][]ingestion.Record{
		ingestion.ResourceFactSales: {
			{"OrderID": "P1", "OrderDate": "2024-01-05", "CustomerID": "ALFKI", "ProductID": 11.0, "TotalAmount": 100.0},
		},
		ingestion.ResourceDimCustomers: {{"CustomerID": "ALFKI", "CompanyName": "Alfreds", "Country": "Germany"}},
		ingestion.ResourceDimProducts:  {{"ProductID": 11.0, "ProductName": "Queso", "CategoryName": "Dairy Products"}},
		ingestion.ResourceAccessOrders: {
			{"Order ID": "S1", "Order Date": "2024-01-06", "Customer ID": 4.0},
			{"Order ID": "S2", "Order Date": "2024-01-06", "Customer ID": 4.0},
		},
		ingestion.ResourceAccessCustomers: {{"ID": 4.0, "Company": "Company D", "Country/Region": "USA"}},
		ingestion.ResourceAccessProducts:  {{"ID": 7.0, "Product Name": "Chai", "Category": "Beverages"}},
		ingestion.ResourceAccessOrderDetails: {
			{"Order ID": "S1", "Product ID": 7.0, "Quantity": 5.0, "Unit Price": 10.0},
		},
	}}
}

func testServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:               8080,
		Host:               "localhost",
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       30 * time.Second,
		ShutdownTimeout:    30 * time.Second,
		LogLevel:           slog.LevelError,
		CORSAllowedOrigins: []string{"*"},
		CORSAllowedMethods: []string{"GET", "POST", "OPTIONS"},
		CORSAllowedHeaders: []string{"Content-Type", "X-Correlation-ID"},
		CORSExposedHeaders: []string{"Content-Disposition", "X-Correlation-ID"},
		CORSMaxAge:         86400,
	}
}

// newTestServer returns a server over a loaded session unless load is false.
func newTestServer(t *testing.T, src *testSource, load bool) (*Server, *session.Session) {
	t.Helper()

	reg := metrics.NewRegistry()
	sess := session.New(src, session.WithMetrics(reg))

	if load {
		_, err := sess.Reload(context.Background())
		require.NoError(t, err)
	}

	return NewServer(testServerConfig(), sess, reg, nil), sess
}

func do(server *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	return rr
}

func TestReadyEndpoint(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := newTestSource()
	server, sess := newTestServer(t, src, false)

	rr := do(server, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	_, err := sess.Reload(context.Background())
	require.NoError(t, err)

	rr = do(server, http.MethodGet, "/ready")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "ready", rr.Body.String())

	rr = do(server, http.MethodGet, "/ping")
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "pong", rr.Body.String())
}

func TestHealthEndpoint(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server, sess := newTestServer(t, newTestSource(), true)

	rr := do(server, http.MethodGet, "/health")
	require.Equal(t, http.StatusOK, rr.Code)

	var health HealthStatus
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))

	assert.Equal(t, "healthy", health.Status)
	assert.Equal(t, "salesdash", health.ServiceName)
	assert.Equal(t, sess.Status().SnapshotID, health.Snapshot)
	assert.NotNil(t, health.LoadedAt)
}

func TestFiltersEndpoint(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server, _ := newTestServer(t, newTestSource(), true)

	rr := do(server, http.MethodGet, "/api/v1/filters")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var options struct {
		MinDate    string   `json:"minDate"`
		MaxDate    string   `json:"maxDate"`
		Countries  []string `json:"countries"`
		Categories []string `json:"categories"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &options))

	assert.Equal(t, "2024-01-05", options.MinDate)
	assert.Equal(t, "2024-01-06", options.MaxDate)
	assert.Equal(t, []string{"Germany", "USA"}, options.Countries)
	assert.Contains(t, options.Categories, "Beverages")
	assert.Contains(t, options.Categories, "Dairy Products")
}

func TestDashboardEndpoint(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server, _ := newTestServer(t, newTestSource(), true)

	tests := []struct {
		name      string
		query     string
		revenue   float64
		orders    int
		customers int
	}{
		{"everything", "", 150, 3, 2},
		{"one country", "?countries=Germany", 100, 1, 1},
		{"explicit all flag wins over list", "?countries=Germany&allCountries=true", 150, 3, 2},
		{"date range", "?start=2024-01-06&end=2024-01-06", 50, 2, 2},
		{"category", "?categories=Beverages", 50, 1, 2},
		{"empty country list selects nothing", "?countries=", 0, 0, 0},
		{"no matching country", "?countries=Brazil", 0, 0, 0},
		{"repeated country param", "?country=Germany&country=USA", 150, 3, 2},
		{"country param with comma selects nothing else", "?country=Korea%2C+Republic+of", 0, 0, 0},
		{"list and repeated params combine", "?countries=Brazil&country=USA", 50, 2, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(server, http.MethodGet, "/api/v1/dashboard"+tt.query)
			require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

			var resp DashboardResponse
			require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))

			assert.InDelta(t, tt.revenue, resp.KPIs.TotalRevenue, 1e-9)
			assert.Equal(t, tt.orders, resp.KPIs.TotalOrders)
			assert.Equal(t, tt.customers, resp.KPIs.TotalCustomers)
			assert.False(t, resp.Stale)
			assert.NotZero(t, resp.Generation)
		})
	}
}

func TestDashboardEndpoint_BadParameters(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server, _ := newTestServer(t, newTestSource(), true)

	for _, query := range []string{
		"?start=05/01/2024",
		"?end=2024-13-01",
		"?start=2024-02-01&end=2024-01-01",
		"?allCountries=maybe",
	} {
		rr := do(server, http.MethodGet, "/api/v1/dashboard"+query)
		verifyProblem(t, rr, http.StatusBadRequest)
	}
}

func TestDashboardEndpoint_NotLoaded(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := newTestSource()
	src.fail(errSourceDown)

	server, sess := newTestServer(t, src, false)

	_, err := sess.Reload(context.Background())
	require.ErrorIs(t, err, ingestion.ErrSourceUnavailable)

	rr := do(server, http.MethodGet, "/api/v1/dashboard")
	problem := verifyProblem(t, rr, http.StatusServiceUnavailable)
	assert.Contains(t, problem["detail"], "connection refused")

	rr = do(server, http.MethodGet, "/api/v1/filters")
	verifyProblem(t, rr, http.StatusServiceUnavailable)
}

func TestReloadEndpoint(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	src := newTestSource()
	server, sess := newTestServer(t, src, false)

	rr := do(server, http.MethodPost, "/api/v1/reload")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp ReloadResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, sess.Status().SnapshotID, resp.SnapshotID)
	assert.Equal(t, 3, resp.Report.Facts)

	src.fail(errSourceDown)

	rr = do(server, http.MethodPost, "/api/v1/reload")
	verifyProblem(t, rr, http.StatusServiceUnavailable)
	assert.False(t, sess.Status().Loaded, "failed reload must not keep the previous snapshot")

	// The catch-all route answers other methods.
	rr = do(server, http.MethodGet, "/api/v1/reload")
	verifyProblem(t, rr, http.StatusNotFound)
}

func TestExportEndpoint(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server, _ := newTestServer(t, newTestSource(), true)

	t.Run("csv", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/v1/transactions/export?countries=USA")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rr.Header().Get("Content-Type"))
		assert.Contains(t, rr.Header().Get("Content-Disposition"), "transactions.csv")

		records, err := csv.NewReader(strings.NewReader(strings.TrimPrefix(rr.Body.String(), "\ufeff"))).ReadAll()
		require.NoError(t, err)

		// header + S1 line + S2 header-only row
		require.Len(t, records, 3)
		assert.Equal(t, "OrderID", records[0][0])
	})

	t.Run("xlsx", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/v1/transactions/export?format=XLSX")
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Contains(t, rr.Header().Get("Content-Type"), "spreadsheetml")
		// XLSX files are zip archives.
		assert.True(t, strings.HasPrefix(rr.Body.String(), "PK"))
	})

	t.Run("unknown format", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/v1/transactions/export?format=pdf")
		verifyProblem(t, rr, http.StatusBadRequest)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server, _ := newTestServer(t, newTestSource(), true)

	do(server, http.MethodGet, "/api/v1/dashboard")

	rr := do(server, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "salesdash_fact_rows 3")
}

func TestNotFound(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server, _ := newTestServer(t, newTestSource(), true)

	rr := do(server, http.MethodGet, "/api/v1/lineage/events")
	problem := verifyProblem(t, rr, http.StatusNotFound)
	assert.Equal(t, "/api/v1/lineage/events", problem["instance"])
}

func TestMiddlewareStack(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	reg := metrics.NewRegistry()
	sess := session.New(newTestSource(), session.WithMetrics(reg))
	_, err := sess.Reload(context.Background())
	require.NoError(t, err)

	limiter := middleware.NewInMemoryRateLimiter(&middleware.Config{
		GlobalRPS:   100,
		ClientRPS:   1,
		ClientBurst: 2,
	})
	t.Cleanup(func() { _ = limiter.Close() })

	server := NewServer(testServerConfig(), sess, reg, limiter)

	t.Run("successful request carries correlation ID and CORS headers", func(t *testing.T) {
		rr := do(server, http.MethodGet, "/api/v1/filters")
		require.Equal(t, http.StatusOK, rr.Code)

		verifyCorrelationID(t, rr)
		assert.Equal(t, "*", rr.Header().Get("Access-Control-Allow-Origin"))
		assert.NotEmpty(t, rr.Header().Get("Access-Control-Allow-Methods"))
		assert.Equal(t, "Content-Disposition, X-Correlation-ID", rr.Header().Get("Access-Control-Expose-Headers"))
	})

	t.Run("malformed incoming correlation ID is replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Correlation-ID", "abc 123\tforged")

		rr := httptest.NewRecorder()
		server.Handler().ServeHTTP(rr, req)

		verifyCorrelationID(t, rr)
	})

	t.Run("incoming correlation ID is echoed", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("X-Correlation-ID", "abc123")

		rr := httptest.NewRecorder()
		server.Handler().ServeHTTP(rr, req)

		assert.Equal(t, "abc123", rr.Header().Get("X-Correlation-ID"))
	})

	t.Run("preflight", func(t *testing.T) {
		rr := do(server, http.MethodOptions, "/api/v1/dashboard")
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Equal(t, "86400", rr.Header().Get("Access-Control-Max-Age"))
	})

	t.Run("rate limited response is a problem with correlation ID", func(t *testing.T) {
		var limited *httptest.ResponseRecorder

		for i := 0; i < 10; i++ {
			rr := do(server, http.MethodGet, "/api/v1/dashboard")
			if rr.Code == http.StatusTooManyRequests {
				limited = rr

				break
			}
		}

		require.NotNil(t, limited, "expected to hit rate limit")
		verifyProblem(t, limited, http.StatusTooManyRequests)
		verifyCorrelationID(t, limited)
	})

	t.Run("probes bypass rate limiting", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			rr := do(server, http.MethodGet, "/ready")
			require.Equal(t, http.StatusOK, rr.Code)
		}
	})
}

func TestExport_FilenameExposedCrossOrigin(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	server, _ := newTestServer(t, newTestSource(), true)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/transactions/export?format=csv", nil)
	req.Header.Set("Origin", "https://bi.example.com")

	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "attachment")
	assert.Equal(t, "Content-Disposition, X-Correlation-ID", rr.Header().Get("Access-Control-Expose-Headers"))
}

func TestParseSelection(t *testing.T) {
	if !testing.Short() {
		t.Skip("skipping unit test in non-short mode")
	}

	q := map[string][]string{
		"start":      {"2024-01-01"},
		"countries":  {"Germany, USA,"},
		"categories": {"Beverages"},
	}

	sel, err := parseSelection(q)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), sel.Start)
	assert.True(t, sel.End.IsZero())
	assert.False(t, sel.AllCountries)
	assert.Equal(t, []string{"Germany", "USA"}, sel.Countries)
	assert.False(t, sel.AllCategories)
	assert.Equal(t, []string{"Beverages"}, sel.Categories)

	sel, err = parseSelection(map[string][]string{
		"country":  {"Korea, Republic of", " "},
		"category": {"Grains/Cereals"},
	})
	require.NoError(t, err)
	assert.False(t, sel.AllCountries)
	assert.Equal(t, []string{"Korea, Republic of"}, sel.Countries)
	assert.False(t, sel.AllCategories)
	assert.Equal(t, []string{"Grains/Cereals"}, sel.Categories)

	sel, err = parseSelection(map[string][]string{})
	require.NoError(t, err)
	assert.True(t, sel.AllCountries)
	assert.True(t, sel.AllCategories)

	var pe *paramError

	_, err = parseSelection(map[string][]string{"allCategories": {"nope"}})
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "allCategories", pe.param)
}

func verifyProblem(t *testing.T, rr *httptest.ResponseRecorder, status int) map[string]interface{} {
	t.Helper()

	require.Equal(t, status, rr.Code, rr.Body.String())
	assert.Equal(t, contentTypeProblemJSON, rr.Header().Get("Content-Type"))

	var problem map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &problem))

	for _, field := range []string{"type", "title", "status", "detail", "instance", "correlationId"} {
		assert.Contains(t, problem, field)
	}

	assert.InDelta(t, float64(status), problem["status"], 0)

	return problem
}

func verifyCorrelationID(t *testing.T, rr *httptest.ResponseRecorder) {
	t.Helper()

	correlationID := rr.Header().Get("X-Correlation-ID")
	_, err := uuid.Parse(correlationID)
	assert.NoError(t, err, "correlation ID %q", correlationID)
}
