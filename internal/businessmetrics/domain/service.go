package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/tally/internal/tenant"
)

const (
	TriggerOrderCompleted = "order_completed"
	TriggerOrderDeleted   = "order_deleted"
	TriggerExpenseCreated = "expense_created"
	TriggerExpenseDeleted = "expense_deleted"
)

type Service interface {
	// Get returns the cached row of the context tenant, zeros when absent.
	Get(ctx context.Context) (BusinessMetrics, error)
	// Recompute rebuilds the cached row of t from scratch.
	Recompute(ctx context.Context, t tenant.Tenant, trigger string) (BusinessMetrics, error)
}

var ErrInvalidTenant = errors.New("invalid_tenant")
