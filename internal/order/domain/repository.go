package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tally/internal/tenant"
	"gorm.io/gorm"
)

// ListFilter bounds orders by creation time. From is inclusive; To is
// inclusive unless ToExclusive is set.
type ListFilter struct {
	From        *time.Time
	To          *time.Time
	ToExclusive bool
	Limit       int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, order *Order) error
	List(ctx context.Context, db *gorm.DB, t tenant.Tenant, filter ListFilter) ([]Order, error)
	FindByID(ctx context.Context, db *gorm.DB, t tenant.Tenant, id snowflake.ID) (*Order, error)
	SetCompleted(ctx context.Context, db *gorm.DB, t tenant.Tenant, id snowflake.ID, completed bool, at time.Time) error
	Delete(ctx context.Context, db *gorm.DB, t tenant.Tenant, id snowflake.ID) error
}
