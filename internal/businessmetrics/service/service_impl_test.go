package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tally/internal/businessmetrics/domain"
	"github.com/smallbiznis/tally/internal/businessmetrics/repository"
	"github.com/smallbiznis/tally/internal/clock"
	"github.com/smallbiznis/tally/internal/config"
	expensedomain "github.com/smallbiznis/tally/internal/expense/domain"
	orderdomain "github.com/smallbiznis/tally/internal/order/domain"
	"github.com/smallbiznis/tally/internal/ratelimit"
	"github.com/smallbiznis/tally/internal/tenant"
	"github.com/smallbiznis/tally/pkg/db"
	"go.uber.org/zap"
)

func newTestService(t *testing.T) domain.Service {
	t.Helper()
	conn, err := db.NewTest()
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := conn.AutoMigrate(&domain.BusinessMetrics{}, &orderdomain.Order{}, &expensedomain.Expense{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return New(Params{
		DB:    conn,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
		Clock: clock.NewFakeClock(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		Lock:  ratelimit.NewTenantLock(config.Config{}, nil),
	})
}

func TestGetReturnsZerosWithoutRow(t *testing.T) {
	svc := newTestService(t)
	ctx := tenant.WithContext(context.Background(), tenant.Personal(4))

	got, err := svc.Get(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Revenue.IsZero() || !got.Expenses.IsZero() || !got.Profit.IsZero() {
		t.Fatalf("expected zeros, got %+v", got)
	}
	if got.PersonalAccountID == nil || *got.PersonalAccountID != 4 {
		t.Fatalf("expected personal account 4, got %v", got.PersonalAccountID)
	}
}

func TestRecomputeRejectsZeroTenant(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.Recompute(context.Background(), tenant.Tenant{}, domain.TriggerExpenseCreated); !errors.Is(err, domain.ErrInvalidTenant) {
		t.Fatalf("expected ErrInvalidTenant, got %v", err)
	}
}

func TestRecomputeIsIdempotent(t *testing.T) {
	svc := newTestService(t)
	owner := tenant.Organization(9)

	first, err := svc.Recompute(context.Background(), owner, domain.TriggerOrderCompleted)
	if err != nil {
		t.Fatalf("recompute: %v", err)
	}
	second, err := svc.Recompute(context.Background(), owner, domain.TriggerOrderCompleted)
	if err != nil {
		t.Fatalf("recompute again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected the same row to be updated, got %s and %s", first.ID, second.ID)
	}
	if !second.Profit.IsZero() {
		t.Fatalf("expected zero profit, got %s", second.Profit)
	}
}
