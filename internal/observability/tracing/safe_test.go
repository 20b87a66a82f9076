package tracing

import (
	"errors"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestSafeAttributesDropsPersonalKeys(t *testing.T) {
	attrs := SafeAttributes(
		attribute.String("http.route", "/api/orders"),
		attribute.String("user.email", "a@b.c"),
		attribute.String("customer_name", "Ann"),
		attribute.Int("http.status_code", 200),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	for _, attr := range attrs {
		if strings.Contains(string(attr.Key), "email") || strings.Contains(string(attr.Key), "name") {
			t.Fatalf("unexpected attribute %s", attr.Key)
		}
	}
}

func TestSafeErrorMasksEmailsAndTruncates(t *testing.T) {
	err := SafeError(errors.New("lookup failed for ann@example.com"))
	if strings.Contains(err.Error(), "ann@example.com") {
		t.Fatalf("expected email masked, got %q", err.Error())
	}

	long := SafeError(errors.New(strings.Repeat("x", 1000)))
	if len(long.Error()) != maxErrorLen {
		t.Fatalf("expected truncation to %d, got %d", maxErrorLen, len(long.Error()))
	}

	if SafeError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestClampRatio(t *testing.T) {
	if clampRatio(-1) != 0 || clampRatio(2) != 1 || clampRatio(0.25) != 0.25 {
		t.Fatalf("unexpected clamp results")
	}
}
