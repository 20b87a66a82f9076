package ratelimit

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tally/internal/config"
)

const keyMetricsTenant = "metrics:recompute:"

// unlockScript deletes the key only while it still holds our token.
const unlockScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`

// TenantLock serializes business metrics recomputation per tenant.
type TenantLock struct {
	client *redis.Client
	unlock *redis.Script
	ttl    time.Duration
}

func NewTenantLock(cfg config.Config, client *redis.Client) *TenantLock {
	if client == nil || cfg.RateLimit.MetricsLockTTL <= 0 {
		return &TenantLock{}
	}
	return &TenantLock{
		client: client,
		unlock: redis.NewScript(unlockScript),
		ttl:    cfg.RateLimit.MetricsLockTTL,
	}
}

func (l *TenantLock) Enabled() bool {
	return l != nil && l.client != nil
}

// TryLock acquires the recompute lock for tenantKey. When locking is
// disabled it always succeeds with an empty token.
func (l *TenantLock) TryLock(ctx context.Context, tenantKey string) (string, bool, error) {
	if !l.Enabled() {
		return "", true, nil
	}
	token := ulid.Make().String()
	ok, err := l.client.SetNX(ctx, keyMetricsTenant+tenantKey, token, l.ttl).Result()
	if err != nil {
		return "", false, err
	}
	return token, ok, nil
}

func (l *TenantLock) Release(ctx context.Context, tenantKey, token string) error {
	if !l.Enabled() || token == "" {
		return nil
	}
	return l.unlock.Run(ctx, l.client, []string{keyMetricsTenant + tenantKey}, token).Err()
}
