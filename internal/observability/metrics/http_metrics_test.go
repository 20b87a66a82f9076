package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestGinMiddlewareCountsByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := newHTTPMetrics(prometheus.NewRegistry(), Config{})

	r := gin.New()
	r.Use(GinMiddleware(m))
	r.GET("/api/orders/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, path := range []string{"/api/orders/1", "/api/orders/2", "/nope"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := testutil.ToFloat64(m.requests.WithLabelValues("/api/orders/:id", http.MethodGet, "404")); got != 2 {
		t.Fatalf("expected 2 requests on templated route, got %v", got)
	}
	if got := testutil.ToFloat64(m.requests.WithLabelValues("unknown", http.MethodGet, "404")); got != 1 {
		t.Fatalf("expected 1 unmatched request, got %v", got)
	}
}
