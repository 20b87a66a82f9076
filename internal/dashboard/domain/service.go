package domain

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/tally/internal/dashboard/aggregate"
)

// AnalyticsRequest is an inclusive creation-time range.
type AnalyticsRequest struct {
	Start time.Time
	End   time.Time
}

type Service interface {
	Dashboard(ctx context.Context) (aggregate.DashboardSummary, error)
	Analytics(ctx context.Context, req AnalyticsRequest) (aggregate.AnalyticsSummary, error)
	Trends(ctx context.Context) (aggregate.TrendSummary, error)
}

var (
	ErrInvalidTenant = errors.New("invalid_tenant")
	ErrInvalidRange  = errors.New("invalid_date_range")
)
