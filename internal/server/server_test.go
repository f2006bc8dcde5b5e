package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"candleservice/config"
	"candleservice/internal/aggregator"
	"candleservice/internal/index"
	"candleservice/internal/memorystore"
	"candleservice/internal/metrics"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupGinTestMode() {
	gin.SetMode(gin.TestMode)
}

func testIndex() *index.Index {
	b := index.NewBuilder()
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	for i, p := range []float64{5, 1, 9, 3} {
		b.Add(index.Tick{Time: base.Add(time.Duration(i*10) * time.Minute), Code: "7203", Price: p})
	}
	return b.Build()
}

func newTestServer(t *testing.T, fallback aggregator.Fallback) (*Server, *gin.Engine) {
	t.Helper()
	setupGinTestMode()
	srv, err := New(
		config.ServerConfig{DefaultTimezone: "UTC"},
		memorystore.NewStore(testIndex()),
		aggregator.New(fallback),
		metrics.New(nil),
		zap.NewNop(),
	)
	require.NoError(t, err)
	return srv, srv.SetupRoutes()
}

func do(router *gin.Engine, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeCandle(t *testing.T, w *httptest.ResponseRecorder) aggregator.Candle {
	t.Helper()
	var c aggregator.Candle
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &c), w.Body.String())
	return c
}

func TestGetCandle(t *testing.T) {
	_, router := newTestServer(t, aggregator.FallbackLexical)

	w := do(router, http.MethodGet, "/candle?code=7203&year=2024&month=3&day=1&hour=9", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"open":5,"high":9,"low":1,"close":3}`, w.Body.String())
}

func TestGetCandleTimezone(t *testing.T) {
	_, router := newTestServer(t, aggregator.FallbackNone)

	// 18:00 JST is 09:00 UTC
	w := do(router, http.MethodGet, "/candle?code=7203&year=2024&month=3&day=1&hour=18&tz=JST", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, aggregator.Candle{Open: 5, High: 9, Low: 1, Close: 3}, decodeCandle(t, w))

	w = do(router, http.MethodGet, "/candle?code=7203&year=2024&month=3&day=1&hour=18&tz=Asia/Tokyo", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, aggregator.Candle{Open: 5, High: 9, Low: 1, Close: 3}, decodeCandle(t, w))

	// the same wall-clock hour in UTC is empty under strict windows
	w = do(router, http.MethodGet, "/candle?code=7203&year=2024&month=3&day=1&hour=18", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, decodeCandle(t, w).IsZero())
}

func TestGetCandleUnknownCode(t *testing.T) {
	_, router := newTestServer(t, aggregator.FallbackLexical)

	w := do(router, http.MethodGet, "/candle?code=9999&year=2024&month=3&day=1&hour=9", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"open":0,"high":0,"low":0,"close":0}`, w.Body.String())
}

func TestGetCandleValidation(t *testing.T) {
	_, router := newTestServer(t, aggregator.FallbackLexical)

	tests := []struct {
		name  string
		query string
	}{
		{"missing code", "year=2024&month=3&day=1&hour=9"},
		{"missing hour", "code=7203&year=2024&month=3&day=1"},
		{"non-numeric year", "code=7203&year=abc&month=3&day=1&hour=9"},
		{"month 13", "code=7203&year=2024&month=13&day=1&hour=9"},
		{"hour 24", "code=7203&year=2024&month=3&day=1&hour=24"},
		{"february 30", "code=7203&year=2024&month=2&day=30&hour=0"},
		{"negative hour", "code=7203&year=2024&month=3&day=1&hour=-1"},
		{"unknown tz", "code=7203&year=2024&month=3&day=1&hour=9&tz=Mars/Olympus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(router, http.MethodGet, "/candle?"+tt.query, "")
			assert.Equal(t, http.StatusBadRequest, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
			assert.Equal(t, w.Header().Get(RequestIDHeaderKey), body["request_id"])
		})
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	_, router := newTestServer(t, aggregator.FallbackLexical)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeaderKey, "abc-123")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	assert.Equal(t, "abc-123", w.Header().Get(RequestIDHeaderKey))

	w = do(router, http.MethodGet, "/health", "")
	assert.Len(t, w.Header().Get(RequestIDHeaderKey), 36)
}

func TestPutFlag(t *testing.T) {
	_, router := newTestServer(t, aggregator.FallbackLexical)

	w := do(router, http.MethodPut, "/flag", `{"flag":"test-flag"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true}`, w.Body.String())

	for _, body := range []string{`{}`, `not json`, `{"flag":1}`} {
		w = do(router, http.MethodPut, "/flag", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, body)
	}
}

func TestHealthAndStats(t *testing.T) {
	_, router := newTestServer(t, aggregator.FallbackTemporal)

	w := do(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "OK", health["status"])
	assert.Equal(t, float64(4), health["index_rows"])

	w = do(router, http.MethodGet, "/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	var stats struct {
		Generation uint64      `json:"generation"`
		Fallback   string      `json:"fallback"`
		Index      index.Stats `json:"index"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, uint64(1), stats.Generation)
	assert.Equal(t, "temporal", stats.Fallback)
	assert.Equal(t, 4, stats.Index.IndexedRows)
	assert.Equal(t, 1, stats.Index.Codes)
}

func TestMetricsEndpoint(t *testing.T) {
	_, router := newTestServer(t, aggregator.FallbackLexical)

	do(router, http.MethodGet, "/candle?code=7203&year=2024&month=3&day=1&hour=9", "")
	w := do(router, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `candle_queries_total{resolution="exact"} 1`)
}

func TestNewRejectsBadDefaultTimezone(t *testing.T) {
	_, err := New(config.ServerConfig{DefaultTimezone: "Nowhere/Land"}, memorystore.NewStore(nil), aggregator.New(aggregator.FallbackNone), nil, nil)
	assert.Error(t, err)
}

type stubHealth bool

func (h stubHealth) IsHealthy(context.Context) bool { return bool(h) }

func TestHealthReportsSource(t *testing.T) {
	srv, router := newTestServer(t, aggregator.FallbackLexical)

	srv.SetSourceHealth(stubHealth(true))
	w := do(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, w.Code)
	var health map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "OK", health["status"])
	assert.Equal(t, "up", health["source"])

	srv.SetSourceHealth(stubHealth(false))
	w = do(router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &health))
	assert.Equal(t, "DEGRADED", health["status"])
	assert.Equal(t, "down", health["source"])
	assert.Equal(t, float64(4), health["index_rows"])
}
