package metrics

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("tenant_kind", "organization"),
		attribute.String("tenant_id", "456"),
		attribute.String("view", "dashboard"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if attr.Key == "tenant_id" {
			t.Fatalf("expected tenant_id to be dropped")
		}
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordDashboardView(context.Background(), "dashboard", "personal")
	m.RecordJoinRequest(context.Background(), "submitted")
	m.RecordJoinThrottle(context.Background(), false)
}

func TestNewWithNoopProvider(t *testing.T) {
	m, err := New(Config{ServiceName: "tally"}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	m.RecordDashboardView(context.Background(), "analytics", "organization")
}
