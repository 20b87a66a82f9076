// Package context carries request correlation values used by logs, traces and audit entries.
package context

import (
	"context"
	"strings"
)

type ctxKey string

const (
	requestIDKey ctxKey = "obs.request_id"
	tenantKey    ctxKey = "obs.tenant"
	actorKey     ctxKey = "obs.actor"
	ipAddressKey ctxKey = "obs.ip_address"
	userAgentKey ctxKey = "obs.user_agent"
)

type tenantValue struct {
	kind string
	id   string
}

type actorValue struct {
	actorType string
	actorID   string
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, strings.TrimSpace(requestID))
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDKey).(string)
	return v
}

// WithTenant records the tenant kind ("organization" or "personal") and id.
func WithTenant(ctx context.Context, kind, id string) context.Context {
	return context.WithValue(ctx, tenantKey, tenantValue{kind: kind, id: id})
}

func TenantFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	v, _ := ctx.Value(tenantKey).(tenantValue)
	return v.kind, v.id
}

func WithActor(ctx context.Context, actorType, actorID string) context.Context {
	return context.WithValue(ctx, actorKey, actorValue{actorType: actorType, actorID: actorID})
}

func ActorFromContext(ctx context.Context) (string, string) {
	if ctx == nil {
		return "", ""
	}
	v, _ := ctx.Value(actorKey).(actorValue)
	return v.actorType, v.actorID
}

func WithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ipAddressKey, ip)
}

func IPAddressFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(ipAddressKey).(string)
	return v
}

func WithUserAgent(ctx context.Context, ua string) context.Context {
	return context.WithValue(ctx, userAgentKey, ua)
}

func UserAgentFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(userAgentKey).(string)
	return v
}
