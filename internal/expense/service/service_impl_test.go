package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	bmdomain "github.com/smallbiznis/tally/internal/businessmetrics/domain"
	bmrepo "github.com/smallbiznis/tally/internal/businessmetrics/repository"
	bmservice "github.com/smallbiznis/tally/internal/businessmetrics/service"
	"github.com/smallbiznis/tally/internal/clock"
	"github.com/smallbiznis/tally/internal/expense/domain"
	"github.com/smallbiznis/tally/internal/expense/repository"
	orderdomain "github.com/smallbiznis/tally/internal/order/domain"
	"github.com/smallbiznis/tally/internal/tenant"
	"github.com/smallbiznis/tally/pkg/db"
	"go.uber.org/zap"
)

func newTestServices(t *testing.T) (domain.Service, bmdomain.Service) {
	t.Helper()
	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(
		&domain.Expense{}, &domain.ExpenseItem{},
		&orderdomain.Order{}, &orderdomain.OrderItem{}, &orderdomain.AdditionalFee{},
		&bmdomain.BusinessMetrics{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	clk := clock.NewFakeClock(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	metrics := bmservice.New(bmservice.Params{DB: conn, Log: zap.NewNop(), GenID: node, Repo: bmrepo.Provide(), Clock: clk})
	svc := New(Params{DB: conn, Log: zap.NewNop(), GenID: node, Repo: repository.Provide(), Clock: clk, Metrics: metrics})
	return svc, metrics
}

func rent(amount string) domain.CreateExpenseRequest {
	return domain.CreateExpenseRequest{
		Description: "Rent",
		Amount:      decimal.RequireFromString(amount),
		Category:    "rent",
	}
}

func TestCreateRecomputesTenantMetricsOnly(t *testing.T) {
	svc, metrics := newTestServices(t)
	mine := tenant.WithContext(context.Background(), tenant.Organization(1))
	theirs := tenant.WithContext(context.Background(), tenant.Organization(2))

	if _, err := svc.Create(mine, 1, rent("30")); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Create(theirs, 2, rent("500")); err != nil {
		t.Fatalf("create other: %v", err)
	}

	got, err := metrics.Get(mine)
	if err != nil {
		t.Fatalf("metrics: %v", err)
	}
	if !got.Expenses.Equal(decimal.NewFromInt(30)) {
		t.Fatalf("expected expenses 30, got %s", got.Expenses)
	}
	if !got.Profit.Equal(decimal.NewFromInt(-30)) {
		t.Fatalf("expected profit -30, got %s", got.Profit)
	}
}

func TestCreateValidates(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := tenant.WithContext(context.Background(), tenant.Personal(1))

	req := rent("10")
	req.Description = ""
	if _, err := svc.Create(ctx, 1, req); !errors.Is(err, domain.ErrInvalidDescription) {
		t.Fatalf("expected ErrInvalidDescription, got %v", err)
	}
	if _, err := svc.Create(ctx, 1, rent("-1")); !errors.Is(err, domain.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	req = rent("10")
	req.Category = " "
	if _, err := svc.Create(ctx, 1, req); !errors.Is(err, domain.ErrInvalidCategory) {
		t.Fatalf("expected ErrInvalidCategory, got %v", err)
	}
}

func TestCreateDefaultsDateAndKeepsAmount(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := tenant.WithContext(context.Background(), tenant.Personal(1))

	req := rent("100")
	req.Items = []domain.CreateItemRequest{{Description: "Deposit", Quantity: 2, UnitPrice: decimal.NewFromInt(10)}}
	expense, err := svc.Create(ctx, 1, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !expense.Amount.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("expected amount 100, got %s", expense.Amount)
	}
	if !expense.Items[0].Total.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("expected item total 20, got %s", expense.Items[0].Total)
	}
	if !expense.Date.Equal(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected date from clock, got %s", expense.Date)
	}
}

func TestDeleteIsTenantScoped(t *testing.T) {
	svc, _ := newTestServices(t)
	mine := tenant.WithContext(context.Background(), tenant.Organization(1))
	theirs := tenant.WithContext(context.Background(), tenant.Organization(2))

	expense, err := svc.Create(mine, 1, rent("30"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(theirs, expense.ID.String()); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(mine, expense.ID.String()); err != nil {
		t.Fatalf("delete: %v", err)
	}

	list, err := svc.List(mine, domain.ListFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no expenses, got %d", len(list))
	}
}
