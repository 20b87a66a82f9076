package tracing

import (
	"context"
	"errors"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
)

// ExtractContext pulls a remote span context from the carrier.
func ExtractContext(ctx context.Context, carrier propagation.TextMapCarrier) context.Context {
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}

var blockedKeyFragments = []string{"email", "password", "token", "secret", "cookie", "authorization", "name"}

// SafeAttributes drops attributes whose keys could carry personal data.
func SafeAttributes(attrs ...attribute.KeyValue) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for _, attr := range attrs {
		if !safeKey(string(attr.Key)) {
			continue
		}
		out = append(out, attr)
	}
	return out
}

func safeKey(key string) bool {
	key = strings.ToLower(key)
	for _, fragment := range blockedKeyFragments {
		if strings.Contains(key, fragment) {
			return false
		}
	}
	return true
}

const maxErrorLen = 256

// SafeError returns a span-safe copy of err: truncated and with email-like tokens masked.
func SafeError(err error) error {
	if err == nil {
		return nil
	}
	fields := strings.Fields(err.Error())
	for i, f := range fields {
		if strings.Contains(f, "@") {
			fields[i] = "[redacted]"
		}
	}
	msg := strings.Join(fields, " ")
	if len(msg) > maxErrorLen {
		msg = msg[:maxErrorLen]
	}
	return errors.New(msg)
}
