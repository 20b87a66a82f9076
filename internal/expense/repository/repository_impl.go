package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tally/internal/expense/domain"
	"github.com/smallbiznis/tally/internal/tenant"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, expense *domain.Expense) error {
	return db.WithContext(ctx).Create(expense).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, t tenant.Tenant, filter domain.ListFilter) ([]domain.Expense, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Expense{}).
		Scopes(tenant.Scope(t)).
		Preload("Items")

	if filter.From != nil {
		stmt = stmt.Where("date >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		stmt = stmt.Where("date <= ?", filter.To.UTC())
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}
	if filter.ByDate {
		stmt = stmt.Order("date desc, id desc")
	} else {
		stmt = stmt.Order("created_at desc, id desc")
	}

	expenses := make([]domain.Expense, 0)
	if err := stmt.Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, t tenant.Tenant, id snowflake.ID) (*domain.Expense, error) {
	var expense domain.Expense
	err := db.WithContext(ctx).
		Scopes(tenant.Scope(t)).
		Where("id = ?", id).
		First(&expense).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &expense, nil
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, t tenant.Tenant, id snowflake.ID) error {
	if err := db.WithContext(ctx).Where("expense_id = ?", id).Delete(&domain.ExpenseItem{}).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Scopes(tenant.Scope(t)).Where("id = ?", id).Delete(&domain.Expense{}).Error
}
