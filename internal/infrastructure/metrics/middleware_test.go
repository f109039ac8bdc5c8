package metrics

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
)

// testExporter is a shared exporter instance for all tests to avoid
// duplicate Prometheus metric registration errors.
var (
	testExporter     *PrometheusExporter
	testExporterOnce sync.Once
)

func getTestExporter(collector *Collector) *PrometheusExporter {
	testExporterOnce.Do(func() {
		testExporter = NewPrometheusExporter(collector)
	})
	return testExporter
}

func newTestRouter(collector *Collector, exporter *PrometheusExporter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(Middleware(collector, exporter))
	router.GET("/ok", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	router.GET("/boom", func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})
	return router
}

func TestMiddleware_RecordsRequest(t *testing.T) {
	collector := NewCollector()
	router := newTestRouter(collector, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}

	apiMetrics := collector.GetAPIMetrics()
	if count, ok := apiMetrics.RequestCounts["GET /ok"]; !ok || count != 1 {
		t.Errorf("expected request count 1 for GET /ok, got %d", count)
	}
}

func TestMiddleware_RecordsDuration(t *testing.T) {
	collector := NewCollector()
	router := newTestRouter(collector, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	apiMetrics := collector.GetAPIMetrics()
	if _, ok := apiMetrics.TotalDurationSeconds["GET /ok"]; !ok {
		t.Error("expected duration to be recorded for GET /ok")
	}
}

func TestMiddleware_RecordsServerError(t *testing.T) {
	collector := NewCollector()
	router := newTestRouter(collector, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %d", w.Code)
	}

	apiMetrics := collector.GetAPIMetrics()
	if count, ok := apiMetrics.ErrorCounts["GET /boom"]; !ok || count != 1 {
		t.Errorf("expected error count 1 for GET /boom, got %d", count)
	}
}

func TestMiddleware_SuccessNotCountedAsError(t *testing.T) {
	collector := NewCollector()
	router := newTestRouter(collector, nil)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))

	apiMetrics := collector.GetAPIMetrics()
	if count, ok := apiMetrics.ErrorCounts["GET /ok"]; ok && count > 0 {
		t.Errorf("expected no error count for GET /ok, got %d", count)
	}
}

func TestMiddleware_MultipleRequests(t *testing.T) {
	collector := NewCollector()
	router := newTestRouter(collector, nil)

	for i := 0; i < 5; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
		if w.Code != http.StatusOK {
			t.Fatalf("unexpected status on call %d: %d", i, w.Code)
		}
	}

	apiMetrics := collector.GetAPIMetrics()
	if count, ok := apiMetrics.RequestCounts["GET /ok"]; !ok || count != 5 {
		t.Errorf("expected request count 5, got %d", count)
	}
}

func TestMiddleware_WithPrometheusExporter(t *testing.T) {
	collector := NewCollector()
	exporter := getTestExporter(collector)
	router := newTestRouter(collector, exporter)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("unexpected status: %d", w.Code)
	}

	apiMetrics := collector.GetAPIMetrics()
	if count, ok := apiMetrics.RequestCounts["GET /ok"]; !ok || count != 1 {
		t.Errorf("expected request count 1, got %d", count)
	}
}
