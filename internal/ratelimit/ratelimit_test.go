package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/tally/internal/config"
)

func TestDisabledJoinLimiterAllows(t *testing.T) {
	limiter := NewJoinLimiter(config.Config{RateLimit: config.RateLimitConfig{Enabled: true, JoinRate: 1, JoinBurst: 1}}, nil)
	if limiter.Enabled() {
		t.Fatalf("expected limiter without redis to be disabled")
	}
	res, err := limiter.Allow(context.Background(), "42")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !res.Allowed {
		t.Fatalf("expected disabled limiter to allow")
	}

	var nilLimiter *JoinLimiter
	if res, err := nilLimiter.Allow(context.Background(), "42"); err != nil || !res.Allowed {
		t.Fatalf("expected nil limiter to allow, got %+v %v", res, err)
	}
}

func TestDisabledTenantLockAlwaysAcquires(t *testing.T) {
	lock := NewTenantLock(config.Config{}, nil)
	token, ok, err := lock.TryLock(context.Background(), "organization:1")
	if err != nil || !ok || token != "" {
		t.Fatalf("expected free acquisition, got token=%q ok=%v err=%v", token, ok, err)
	}
	if err := lock.Release(context.Background(), "organization:1", token); err != nil {
		t.Fatalf("expected release to succeed, got %v", err)
	}
}

func TestIdleTTL(t *testing.T) {
	if got := idleTTL(0.05, 5); got != 200*time.Second {
		t.Fatalf("expected 200s, got %v", got)
	}
	if got := idleTTL(100, 1); got != time.Second {
		t.Fatalf("expected floor of 1s, got %v", got)
	}
	if got := idleTTL(0, 5); got != time.Second {
		t.Fatalf("expected 1s for invalid rate, got %v", got)
	}
}

func TestParseJoinReply(t *testing.T) {
	res, err := parseJoinReply([]interface{}{int64(0), "0.25", int64(15000)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed || res.Remaining != 0.25 || res.RetryAfter != 15*time.Second {
		t.Fatalf("unexpected result %+v", res)
	}

	res, err = parseJoinReply([]interface{}{int64(1), "3", int64(0)})
	if err != nil || !res.Allowed || res.Remaining != 3 {
		t.Fatalf("unexpected result %+v %v", res, err)
	}

	if _, err := parseJoinReply([]interface{}{int64(1)}); err == nil {
		t.Fatalf("expected error for short reply")
	}
	if _, err := parseJoinReply([]interface{}{int64(1), 1.5, int64(0)}); err == nil {
		t.Fatalf("expected error for unexpected slot type")
	}
}
