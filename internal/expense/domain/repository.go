package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tally/internal/tenant"
	"gorm.io/gorm"
)

// ListFilter bounds expenses by their date. Results are newest first by
// creation time, or by expense date when ByDate is set.
type ListFilter struct {
	From   *time.Time
	To     *time.Time
	ByDate bool
	Limit  int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, expense *Expense) error
	List(ctx context.Context, db *gorm.DB, t tenant.Tenant, filter ListFilter) ([]Expense, error)
	FindByID(ctx context.Context, db *gorm.DB, t tenant.Tenant, id snowflake.ID) (*Expense, error)
	Delete(ctx context.Context, db *gorm.DB, t tenant.Tenant, id snowflake.ID) error
}
