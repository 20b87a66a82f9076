package repository

import (
	"context"
	"errors"

	"github.com/smallbiznis/tally/internal/settings/domain"
	"github.com/smallbiznis/tally/internal/tenant"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByTenant(ctx context.Context, db *gorm.DB, t tenant.Tenant) (*domain.Settings, error) {
	var s domain.Settings
	err := db.WithContext(ctx).Scopes(tenant.Scope(t)).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, s *domain.Settings) error {
	return db.WithContext(ctx).Create(s).Error
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, s *domain.Settings) error {
	return db.WithContext(ctx).Model(&domain.Settings{}).
		Where("id = ?", s.ID).
		Updates(map[string]any{
			"business_name":         s.BusinessName,
			"business_email":        s.BusinessEmail,
			"currency":              s.Currency,
			"business_funding":      s.BusinessFunding,
			"notifications_enabled": s.NotificationsEnabled,
			"email_notifications":   s.EmailNotifications,
			"updated_at":            s.UpdatedAt,
		}).Error
}
