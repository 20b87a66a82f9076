package repository

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tally/internal/businessmetrics/domain"
	"github.com/smallbiznis/tally/internal/tenant"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByTenant(ctx context.Context, db *gorm.DB, t tenant.Tenant) (*domain.BusinessMetrics, error) {
	var m domain.BusinessMetrics
	err := db.WithContext(ctx).Scopes(tenant.Scope(t)).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *repo) SumTotals(ctx context.Context, db *gorm.DB, t tenant.Tenant) (domain.Totals, error) {
	var revenue, expenses decimal.NullDecimal

	err := db.WithContext(ctx).Table("orders").
		Scopes(tenant.Scope(t)).
		Where("is_completed = ?", true).
		Select("SUM(total_amount)").
		Row().Scan(&revenue)
	if err != nil {
		return domain.Totals{}, err
	}

	err = db.WithContext(ctx).Table("expenses").
		Scopes(tenant.Scope(t)).
		Select("SUM(amount)").
		Row().Scan(&expenses)
	if err != nil {
		return domain.Totals{}, err
	}

	return domain.Totals{
		Revenue:  orZero(revenue),
		Expenses: orZero(expenses),
	}, nil
}

func (r *repo) Save(ctx context.Context, db *gorm.DB, m *domain.BusinessMetrics) error {
	return db.WithContext(ctx).Save(m).Error
}

func orZero(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}
