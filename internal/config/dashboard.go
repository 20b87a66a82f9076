package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

const (
	MonthOrderChronological = "chronological"
	MonthOrderInsertion     = "insertion"
)

// DashboardTuning holds the aggregation knobs that can change without a restart.
type DashboardTuning struct {
	MonthOrder          string `mapstructure:"monthOrder"`
	RecentActivityLimit int    `mapstructure:"recentActivityLimit"`
	TopProductsLimit    int    `mapstructure:"topProductsLimit"`
	TrendWindowDays     int    `mapstructure:"trendWindowDays"`
	DefaultCurrency     string `mapstructure:"defaultCurrency"`
}

func DefaultDashboardTuning(cfg Config) DashboardTuning {
	order := cfg.Dashboard.MonthOrder
	if order != MonthOrderInsertion {
		order = MonthOrderChronological
	}
	return DashboardTuning{
		MonthOrder:          order,
		RecentActivityLimit: 10,
		TopProductsLimit:    5,
		TrendWindowDays:     30,
		DefaultCurrency:     "XCD",
	}
}

type DashboardTuningHolder struct {
	current atomic.Value // holds DashboardTuning
}

// NewStaticDashboardTuning returns a holder that never reloads.
func NewStaticDashboardTuning(t DashboardTuning) *DashboardTuningHolder {
	holder := &DashboardTuningHolder{}
	holder.current.Store(t)
	return holder
}

// NewDashboardTuningHolder reads dashboard.yml when present and watches it for changes.
func NewDashboardTuningHolder(cfg Config, log *zap.Logger) (*DashboardTuningHolder, error) {
	v := viper.New()

	v.SetConfigName("dashboard")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/tally")
	v.AddConfigPath(".")

	v.SetEnvPrefix("TALLY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultDashboardTuning(cfg)
	v.SetDefault("dashboard.monthOrder", defaults.MonthOrder)
	v.SetDefault("dashboard.recentActivityLimit", defaults.RecentActivityLimit)
	v.SetDefault("dashboard.topProductsLimit", defaults.TopProductsLimit)
	v.SetDefault("dashboard.trendWindowDays", defaults.TrendWindowDays)
	v.SetDefault("dashboard.defaultCurrency", defaults.DefaultCurrency)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
	}

	var tuning DashboardTuning
	if err := v.UnmarshalKey("dashboard", &tuning); err != nil {
		return nil, err
	}
	if err := validateDashboardTuning(tuning); err != nil {
		return nil, err
	}

	holder := NewStaticDashboardTuning(tuning)
	if !watch {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated DashboardTuning
		if err := v.UnmarshalKey("dashboard", &updated); err != nil {
			log.Warn("dashboard tuning reload failed", zap.Error(err))
			return
		}
		if err := validateDashboardTuning(updated); err != nil {
			log.Warn("invalid dashboard tuning ignored", zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("dashboard tuning reloaded", zap.String("file", e.Name))
	})

	return holder, nil
}

func (h *DashboardTuningHolder) Get() DashboardTuning {
	return h.current.Load().(DashboardTuning)
}

func validateDashboardTuning(t DashboardTuning) error {
	switch t.MonthOrder {
	case MonthOrderChronological, MonthOrderInsertion:
	default:
		return errors.New("dashboard.monthOrder must be chronological or insertion")
	}
	if t.RecentActivityLimit <= 0 {
		return errors.New("dashboard.recentActivityLimit must be positive")
	}
	if t.TopProductsLimit <= 0 {
		return errors.New("dashboard.topProductsLimit must be positive")
	}
	if t.TrendWindowDays <= 0 {
		return errors.New("dashboard.trendWindowDays must be positive")
	}
	if strings.TrimSpace(t.DefaultCurrency) == "" {
		return errors.New("dashboard.defaultCurrency cannot be empty")
	}
	return nil
}
