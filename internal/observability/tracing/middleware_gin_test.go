package tracing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/smallbiznis/tally/internal/observability/context"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestGinMiddlewareNamesSpanByRoute(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	r := gin.New()
	r.Use(GinMiddleware())
	r.GET("/api/orders/:id", func(c *gin.Context) {
		ctx := obscontext.WithTenant(c.Request.Context(), "organization", "7")
		c.Request = c.Request.WithContext(ctx)
		c.Status(http.StatusInternalServerError)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/orders/42", nil))
	_ = provider.ForceFlush(context.Background())

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("expected one span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name() != "GET /api/orders/:id" {
		t.Fatalf("unexpected span name %q", span.Name())
	}
	var tenantID string
	for _, attr := range span.Attributes() {
		if attr.Key == "tenant.id" {
			tenantID = attr.Value.AsString()
		}
	}
	if tenantID != "7" {
		t.Fatalf("expected tenant.id attribute, got %q", tenantID)
	}
	if span.Status().Code.String() != "Error" {
		t.Fatalf("expected error status, got %v", span.Status().Code)
	}
}
