package service

import (
	"context"
	"time"

	"github.com/smallbiznis/tally/internal/clock"
	"github.com/smallbiznis/tally/internal/config"
	"github.com/smallbiznis/tally/internal/dashboard/aggregate"
	"github.com/smallbiznis/tally/internal/dashboard/domain"
	expensedomain "github.com/smallbiznis/tally/internal/expense/domain"
	obsmetrics "github.com/smallbiznis/tally/internal/observability/metrics"
	orderdomain "github.com/smallbiznis/tally/internal/order/domain"
	settingsdomain "github.com/smallbiznis/tally/internal/settings/domain"
	"github.com/smallbiznis/tally/internal/tenant"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Params struct {
	fx.In

	Log      *zap.Logger
	Orders   orderdomain.Service
	Expenses expensedomain.Service
	Settings settingsdomain.Service
	Clock    clock.Clock
	Tuning   *config.DashboardTuningHolder
	Metrics  *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	log      *zap.Logger
	orders   orderdomain.Service
	expenses expensedomain.Service
	settings settingsdomain.Service
	clock    clock.Clock
	tuning   *config.DashboardTuningHolder
	metrics  *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		log:      p.Log.Named("dashboard.service"),
		orders:   p.Orders,
		expenses: p.Expenses,
		settings: p.Settings,
		clock:    p.Clock,
		tuning:   p.Tuning,
		metrics:  p.Metrics,
	}
}

func (s *Service) Dashboard(ctx context.Context) (aggregate.DashboardSummary, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return aggregate.DashboardSummary{}, domain.ErrInvalidTenant
	}

	var (
		orders   []orderdomain.Order
		expenses []expensedomain.Expense
		settings settingsdomain.Settings
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		orders, err = s.orders.List(gctx, orderdomain.ListFilter{})
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.expenses.List(gctx, expensedomain.ListFilter{ByDate: true})
		return err
	})
	g.Go(func() (err error) {
		settings, err = s.settings.Get(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return aggregate.DashboardSummary{}, err
	}

	opts := s.options()
	opts.BaseFunding = settings.BusinessFunding

	summary := aggregate.Dashboard(toOrders(orders), toExpenses(expenses), opts)
	s.recordView(ctx, "dashboard", t)
	return summary, nil
}

func (s *Service) Analytics(ctx context.Context, req domain.AnalyticsRequest) (aggregate.AnalyticsSummary, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return aggregate.AnalyticsSummary{}, domain.ErrInvalidTenant
	}
	if req.Start.IsZero() || req.End.IsZero() || req.Start.After(req.End) {
		return aggregate.AnalyticsSummary{}, domain.ErrInvalidRange
	}

	var (
		orders   []orderdomain.Order
		expenses []expensedomain.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		orders, err = s.orders.List(gctx, orderdomain.ListFilter{From: &req.Start, To: &req.End})
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.expenses.List(gctx, expensedomain.ListFilter{From: &req.Start, To: &req.End, ByDate: true})
		return err
	})
	if err := g.Wait(); err != nil {
		return aggregate.AnalyticsSummary{}, err
	}

	summary := aggregate.Analytics(toOrders(orders), toExpenses(expenses), s.options())
	s.recordView(ctx, "analytics", t)
	return summary, nil
}

// Trends compares [now-window, now] against [now-2*window, now-window).
func (s *Service) Trends(ctx context.Context) (aggregate.TrendSummary, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok {
		return aggregate.TrendSummary{}, domain.ErrInvalidTenant
	}

	window := time.Duration(s.tuning.Get().TrendWindowDays) * 24 * time.Hour
	now := s.clock.Now()
	currentStart := now.Add(-window)
	previousStart := now.Add(-2 * window)

	var current, previous []orderdomain.Order
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		current, err = s.orders.List(gctx, orderdomain.ListFilter{From: &currentStart, To: &now})
		return err
	})
	g.Go(func() (err error) {
		previous, err = s.orders.List(gctx, orderdomain.ListFilter{From: &previousStart, To: &currentStart, ToExclusive: true})
		return err
	})
	if err := g.Wait(); err != nil {
		return aggregate.TrendSummary{}, err
	}

	summary := aggregate.Trends(toOrders(current), toOrders(previous))
	s.recordView(ctx, "trends", t)
	return summary, nil
}

func (s *Service) options() aggregate.Options {
	tuning := s.tuning.Get()
	order := aggregate.Chronological
	if tuning.MonthOrder == config.MonthOrderInsertion {
		order = aggregate.Insertion
	}
	return aggregate.Options{
		BucketOrder:   order,
		ActivityLimit: tuning.RecentActivityLimit,
		TopProducts:   tuning.TopProductsLimit,
	}
}

func (s *Service) recordView(ctx context.Context, view string, t tenant.Tenant) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordDashboardView(ctx, view, string(t.Kind()))
}

func toOrders(in []orderdomain.Order) []aggregate.Order {
	out := make([]aggregate.Order, 0, len(in))
	for _, o := range in {
		items := make([]aggregate.Item, 0, len(o.Items))
		for _, item := range o.Items {
			items = append(items, aggregate.Item{
				Name:       item.Name,
				Quantity:   item.Quantity,
				TotalPrice: item.TotalPrice,
			})
		}
		out = append(out, aggregate.Order{
			CustomerName: o.CustomerName,
			TotalAmount:  o.TotalAmount,
			IsCompleted:  o.IsCompleted,
			CreatedAt:    o.CreatedAt,
			Items:        items,
		})
	}
	return out
}

func toExpenses(in []expensedomain.Expense) []aggregate.Expense {
	out := make([]aggregate.Expense, 0, len(in))
	for _, e := range in {
		out = append(out, aggregate.Expense{
			Description: e.Description,
			Amount:      e.Amount,
			Category:    e.Category,
			Date:        e.Date,
		})
	}
	return out
}
