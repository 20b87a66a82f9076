package domain

import (
	"context"

	"github.com/smallbiznis/tally/internal/tenant"
	"gorm.io/gorm"
)

type Repository interface {
	FindByTenant(ctx context.Context, db *gorm.DB, t tenant.Tenant) (*BusinessMetrics, error)
	// SumTotals reads completed order revenue and expense amounts of t.
	SumTotals(ctx context.Context, db *gorm.DB, t tenant.Tenant) (Totals, error)
	Save(ctx context.Context, db *gorm.DB, m *BusinessMetrics) error
}
