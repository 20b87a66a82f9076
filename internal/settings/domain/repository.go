package domain

import (
	"context"

	"github.com/smallbiznis/tally/internal/tenant"
	"gorm.io/gorm"
)

type Repository interface {
	FindByTenant(ctx context.Context, db *gorm.DB, t tenant.Tenant) (*Settings, error)
	Insert(ctx context.Context, db *gorm.DB, s *Settings) error
	Update(ctx context.Context, db *gorm.DB, s *Settings) error
}
