package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/tally/internal/config"
)

const keyJoinRequestUser = "join:request:user:%s"

// joinScript refills the caller's allowance from the server clock and
// spends one slot. Slots travel as strings so fractional refills survive
// the Lua to RESP conversion.
const joinScript = `
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local ttl = tonumber(ARGV[3])

local clock = redis.call("TIME")
local now = tonumber(clock[1]) * 1000 + math.floor(tonumber(clock[2]) / 1000)

local state = redis.call("HMGET", KEYS[1], "slots", "at")
local slots = tonumber(state[1]) or burst
local at = tonumber(state[2]) or now
if now > at then
  slots = math.min(burst, slots + ((now - at) / 1000) * rate)
end

local allowed = 0
local retry = 0
if slots >= 1 then
  allowed = 1
  slots = slots - 1
else
  retry = math.ceil(((1 - slots) / rate) * 1000)
end

redis.call("HSET", KEYS[1], "slots", tostring(slots), "at", now)
redis.call("PEXPIRE", KEYS[1], ttl)

return {allowed, tostring(slots), retry}
`

type JoinResult struct {
	Allowed    bool
	Remaining  float64
	RetryAfter time.Duration
}

// JoinLimiter throttles join-request submissions per user.
type JoinLimiter struct {
	client *redis.Client
	script *redis.Script
	rate   float64
	burst  int
}

func NewJoinLimiter(cfg config.Config, client *redis.Client) *JoinLimiter {
	if !cfg.RateLimit.Enabled || client == nil {
		return &JoinLimiter{}
	}
	return &JoinLimiter{
		client: client,
		script: redis.NewScript(joinScript),
		rate:   cfg.RateLimit.JoinRate,
		burst:  cfg.RateLimit.JoinBurst,
	}
}

func (l *JoinLimiter) Enabled() bool {
	return l != nil && l.client != nil && l.rate > 0 && l.burst > 0
}

// Allow reports whether userID may submit another join request.
// A disabled limiter always allows.
func (l *JoinLimiter) Allow(ctx context.Context, userID string) (*JoinResult, error) {
	if !l.Enabled() {
		return &JoinResult{Allowed: true}, nil
	}
	if userID == "" {
		return nil, errors.New("join limiter: empty user id")
	}

	ttl := idleTTL(l.rate, l.burst)
	res, err := l.script.Run(ctx, l.client,
		[]string{fmt.Sprintf(keyJoinRequestUser, userID)},
		l.rate, l.burst, ttl.Milliseconds(),
	).Slice()
	if err != nil {
		return nil, err
	}
	return parseJoinReply(res)
}

func parseJoinReply(res []interface{}) (*JoinResult, error) {
	if len(res) != 3 {
		return nil, fmt.Errorf("join limiter: unexpected reply of %d values", len(res))
	}
	remaining, err := replyFloat(res[1])
	if err != nil {
		return nil, err
	}
	return &JoinResult{
		Allowed:    replyInt(res[0]) == 1,
		Remaining:  remaining,
		RetryAfter: time.Duration(replyInt(res[2])) * time.Millisecond,
	}, nil
}

// idleTTL keeps a bucket around for twice its full refill time.
func idleTTL(rate float64, burst int) time.Duration {
	if rate <= 0 || burst <= 0 {
		return time.Second
	}
	seconds := math.Max(1, math.Ceil(float64(burst)/rate*2))
	return time.Duration(seconds) * time.Second
}

func replyInt(v interface{}) int64 {
	switch val := v.(type) {
	case int64:
		return val
	case string:
		n, _ := strconv.ParseInt(val, 10, 64)
		return n
	default:
		return 0
	}
}

func replyFloat(v interface{}) (float64, error) {
	switch val := v.(type) {
	case string:
		return strconv.ParseFloat(val, 64)
	case int64:
		return float64(val), nil
	default:
		return 0, fmt.Errorf("join limiter: unexpected slot value %T", v)
	}
}
