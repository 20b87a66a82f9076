package metrics

import (
	"context"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the OTLP counters for user-facing activity. A nil *Metrics
// records nothing.
type Metrics struct {
	dashboardViews metric.Int64Counter
	joinRequests   metric.Int64Counter
	joinThrottle   metric.Int64Counter
}

func New(cfg Config, provider metric.MeterProvider) (*Metrics, error) {
	name := strings.TrimSpace(cfg.ServiceName)
	if name == "" {
		name = "tally"
	}
	meter := provider.Meter(name)

	m := &Metrics{}
	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
	}{
		{&m.dashboardViews, "tally_dashboard_views_total", "Dashboard, trend and analytics reads."},
		{&m.joinRequests, "tally_join_requests_total", "Join request submissions and decisions by outcome."},
		{&m.joinThrottle, "tally_join_throttle_total", "Join rate limiter decisions."},
	}
	for _, c := range counters {
		counter, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc))
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}
	return m, nil
}

// RecordDashboardView counts reads by view and tenant kind.
func (m *Metrics) RecordDashboardView(ctx context.Context, view, tenantKind string) {
	if m == nil {
		return
	}
	m.dashboardViews.Add(ctx, 1, withAttrs(
		attribute.String("view", view),
		attribute.String("tenant_kind", tenantKind),
	))
}

func (m *Metrics) RecordJoinRequest(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.joinRequests.Add(ctx, 1, withAttrs(attribute.String("outcome", outcome)))
}

// RecordJoinThrottle counts limiter verdicts for join-request submissions.
func (m *Metrics) RecordJoinThrottle(ctx context.Context, allowed bool) {
	if m == nil {
		return
	}
	decision := "denied"
	if allowed {
		decision = "allowed"
	}
	m.joinThrottle.Add(ctx, 1, withAttrs(attribute.String("decision", decision)))
}

func withAttrs(attrs ...attribute.KeyValue) metric.AddOption {
	return metric.WithAttributes(FilterAttributes(attrs...)...)
}

var allowedLabelKeys = map[attribute.Key]struct{}{
	"view":        {},
	"tenant_kind": {},
	"outcome":     {},
	"decision":    {},
}

// FilterAttributes drops labels outside the allow list. Tenant and user ids
// never become metric labels.
func FilterAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	filtered := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if _, ok := allowedLabelKeys[attr.Key]; !ok {
			continue
		}
		filtered = append(filtered, attribute.String(string(attr.Key), strings.TrimSpace(attr.Value.Emit())))
	}
	return filtered
}
