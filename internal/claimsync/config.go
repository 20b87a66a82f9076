package claimsync

import (
	"time"

	"github.com/smallbiznis/tally/internal/config"
)

// Config controls the reconciliation loop.
type Config struct {
	RunInterval time.Duration
	BatchSize   int
	MaxAttempts int
	// Grace keeps the worker away from jobs the request path is still applying.
	Grace time.Duration
}

func DefaultConfig() Config {
	return Config{
		RunInterval: 30 * time.Second,
		BatchSize:   50,
		MaxAttempts: 10,
		Grace:       5 * time.Second,
	}
}

func ProvideConfig(cfg config.Config) Config {
	return Config{
		RunInterval: cfg.ClaimSync.Interval,
		BatchSize:   cfg.ClaimSync.BatchSize,
		MaxAttempts: cfg.ClaimSync.MaxAttempts,
	}.withDefaults()
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.RunInterval <= 0 {
		c.RunInterval = defaults.RunInterval
	}
	if c.BatchSize <= 0 {
		c.BatchSize = defaults.BatchSize
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = defaults.MaxAttempts
	}
	if c.Grace <= 0 {
		c.Grace = defaults.Grace
	}
	return c
}
