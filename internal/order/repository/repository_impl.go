package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tally/internal/order/domain"
	"github.com/smallbiznis/tally/internal/tenant"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) error {
	return db.WithContext(ctx).Create(order).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, t tenant.Tenant, filter domain.ListFilter) ([]domain.Order, error) {
	stmt := db.WithContext(ctx).
		Model(&domain.Order{}).
		Scopes(tenant.Scope(t)).
		Preload("Items").
		Preload("Fees")

	if filter.From != nil {
		stmt = stmt.Where("created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		if filter.ToExclusive {
			stmt = stmt.Where("created_at < ?", filter.To.UTC())
		} else {
			stmt = stmt.Where("created_at <= ?", filter.To.UTC())
		}
	}
	if filter.Limit > 0 {
		stmt = stmt.Limit(filter.Limit)
	}

	orders := make([]domain.Order, 0)
	if err := stmt.Order("created_at desc, id desc").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, t tenant.Tenant, id snowflake.ID) (*domain.Order, error) {
	var order domain.Order
	err := db.WithContext(ctx).
		Scopes(tenant.Scope(t)).
		Preload("Items").
		Preload("Fees").
		Where("id = ?", id).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *repo) SetCompleted(ctx context.Context, db *gorm.DB, t tenant.Tenant, id snowflake.ID, completed bool, at time.Time) error {
	return db.WithContext(ctx).
		Model(&domain.Order{}).
		Scopes(tenant.Scope(t)).
		Where("id = ?", id).
		Updates(map[string]any{"is_completed": completed, "updated_at": at}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, t tenant.Tenant, id snowflake.ID) error {
	if err := db.WithContext(ctx).Where("order_id = ?", id).Delete(&domain.OrderItem{}).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Where("order_id = ?", id).Delete(&domain.AdditionalFee{}).Error; err != nil {
		return err
	}
	return db.WithContext(ctx).Scopes(tenant.Scope(t)).Where("id = ?", id).Delete(&domain.Order{}).Error
}
