package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tally/internal/clock"
	"github.com/smallbiznis/tally/internal/config"
	"github.com/smallbiznis/tally/internal/dashboard/domain"
	expensedomain "github.com/smallbiznis/tally/internal/expense/domain"
	orderdomain "github.com/smallbiznis/tally/internal/order/domain"
	settingsdomain "github.com/smallbiznis/tally/internal/settings/domain"
	"github.com/smallbiznis/tally/internal/tenant"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type fakeOrders struct {
	mu      sync.Mutex
	orders  []orderdomain.Order
	filters []orderdomain.ListFilter
}

func (f *fakeOrders) List(ctx context.Context, filter orderdomain.ListFilter) ([]orderdomain.Order, error) {
	f.mu.Lock()
	f.filters = append(f.filters, filter)
	f.mu.Unlock()
	out := make([]orderdomain.Order, 0)
	for _, o := range f.orders {
		if filter.From != nil && o.CreatedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil {
			if filter.ToExclusive && !o.CreatedAt.Before(*filter.To) {
				continue
			}
			if o.CreatedAt.After(*filter.To) {
				continue
			}
		}
		out = append(out, o)
	}
	return out, nil
}

func (f *fakeOrders) Get(context.Context, string) (orderdomain.Order, error) {
	return orderdomain.Order{}, nil
}

func (f *fakeOrders) Create(context.Context, snowflake.ID, orderdomain.CreateOrderRequest) (orderdomain.Order, error) {
	return orderdomain.Order{}, nil
}

func (f *fakeOrders) Toggle(context.Context, string) (orderdomain.Order, error) {
	return orderdomain.Order{}, nil
}

func (f *fakeOrders) Delete(context.Context, string) (orderdomain.Order, error) {
	return orderdomain.Order{}, nil
}

type fakeExpenses struct {
	expenses []expensedomain.Expense
	err      error
}

func (f *fakeExpenses) List(context.Context, expensedomain.ListFilter) ([]expensedomain.Expense, error) {
	return f.expenses, f.err
}

func (f *fakeExpenses) Create(context.Context, snowflake.ID, expensedomain.CreateExpenseRequest) (expensedomain.Expense, error) {
	return expensedomain.Expense{}, nil
}

func (f *fakeExpenses) Delete(context.Context, string) error { return nil }

type fakeSettings struct {
	funding decimal.Decimal
}

func (f *fakeSettings) Get(context.Context) (settingsdomain.Settings, error) {
	return settingsdomain.Settings{BusinessFunding: f.funding}, nil
}

func (f *fakeSettings) Update(context.Context, settingsdomain.UpdateRequest) (settingsdomain.Settings, error) {
	return settingsdomain.Settings{}, nil
}

func (f *fakeSettings) Provision(context.Context, *gorm.DB, tenant.Tenant, string, string) (settingsdomain.Settings, error) {
	return settingsdomain.Settings{}, nil
}

var now = time.Date(2024, 3, 31, 12, 0, 0, 0, time.UTC)

func newTestService(orders *fakeOrders, expenses *fakeExpenses, settings *fakeSettings) domain.Service {
	return NewService(Params{
		Log:      zap.NewNop(),
		Orders:   orders,
		Expenses: expenses,
		Settings: settings,
		Clock:    clock.NewFakeClock(now),
		Tuning:   config.NewStaticDashboardTuning(config.DefaultDashboardTuning(config.Config{})),
	})
}

func tenantCtx() context.Context {
	return tenant.WithContext(context.Background(), tenant.Organization(1))
}

func TestDashboardAggregatesTenantData(t *testing.T) {
	orders := &fakeOrders{orders: []orderdomain.Order{
		{CustomerName: "Ben", TotalAmount: decimal.NewFromInt(50), CreatedAt: time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC)},
		{CustomerName: "Ann", TotalAmount: decimal.NewFromInt(100), IsCompleted: true, CreatedAt: time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)},
	}}
	expenses := &fakeExpenses{expenses: []expensedomain.Expense{
		{Description: "Rent", Amount: decimal.NewFromInt(30), Category: "rent", Date: time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC)},
	}}
	svc := newTestService(orders, expenses, &fakeSettings{funding: decimal.NewFromInt(1000)})

	got, err := svc.Dashboard(tenantCtx())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Metrics.CurrentFunding == nil || !got.Metrics.CurrentFunding.Equal(decimal.NewFromInt(1070)) {
		t.Fatalf("expected funding 1070, got %v", got.Metrics.CurrentFunding)
	}
	if got.Metrics.PendingOrders != 1 {
		t.Fatalf("expected 1 pending order, got %d", got.Metrics.PendingOrders)
	}
	if len(got.RevenueByMonth) != 2 || got.RevenueByMonth[0].Month != "Jan 2024" {
		t.Fatalf("expected chronological buckets starting Jan 2024, got %+v", got.RevenueByMonth)
	}
}

func TestDashboardRequiresTenant(t *testing.T) {
	svc := newTestService(&fakeOrders{}, &fakeExpenses{}, &fakeSettings{})
	if _, err := svc.Dashboard(context.Background()); !errors.Is(err, domain.ErrInvalidTenant) {
		t.Fatalf("expected ErrInvalidTenant, got %v", err)
	}
}

func TestDashboardPropagatesStoreFailure(t *testing.T) {
	boom := errors.New("store down")
	svc := newTestService(&fakeOrders{}, &fakeExpenses{err: boom}, &fakeSettings{})
	if _, err := svc.Dashboard(tenantCtx()); !errors.Is(err, boom) {
		t.Fatalf("expected store failure, got %v", err)
	}
}

func TestAnalyticsValidatesRange(t *testing.T) {
	svc := newTestService(&fakeOrders{}, &fakeExpenses{}, &fakeSettings{})
	_, err := svc.Analytics(tenantCtx(), domain.AnalyticsRequest{Start: now, End: now.Add(-time.Hour)})
	if !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
	_, err = svc.Analytics(tenantCtx(), domain.AnalyticsRequest{})
	if !errors.Is(err, domain.ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange for empty range, got %v", err)
	}
}

func TestTrendsUsesThirtyDayWindows(t *testing.T) {
	orders := &fakeOrders{orders: []orderdomain.Order{
		{CustomerName: "Ann", TotalAmount: decimal.NewFromInt(200), IsCompleted: true, CreatedAt: now.Add(-24 * time.Hour)},
		{CustomerName: "Ann", TotalAmount: decimal.NewFromInt(100), IsCompleted: true, CreatedAt: now.Add(-40 * 24 * time.Hour)},
		{CustomerName: "Old", TotalAmount: decimal.NewFromInt(999), IsCompleted: true, CreatedAt: now.Add(-90 * 24 * time.Hour)},
	}}
	svc := newTestService(orders, &fakeExpenses{}, &fakeSettings{})

	got, err := svc.Trends(tenantCtx())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Revenue != 100 {
		t.Fatalf("expected revenue trend 100, got %v", got.Revenue)
	}
	if got.Orders != 0 || got.Customers != 0 {
		t.Fatalf("expected flat orders and customers, got %+v", got)
	}

	var exclusive int
	for _, f := range orders.filters {
		if f.ToExclusive {
			exclusive++
		}
	}
	if exclusive != 1 {
		t.Fatalf("expected the previous window to exclude its end, got %d exclusive filters", exclusive)
	}
}
