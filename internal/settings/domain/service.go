package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/tally/internal/tenant"
	"gorm.io/gorm"
)

// UpdateRequest carries a partial update. Nil fields keep their value.
type UpdateRequest struct {
	BusinessName         *string          `json:"businessName"`
	BusinessEmail        *string          `json:"businessEmail"`
	Currency             *string          `json:"currency"`
	BusinessFunding      *decimal.Decimal `json:"businessFunding"`
	NotificationsEnabled *bool            `json:"notificationsEnabled"`
	EmailNotifications   *bool            `json:"emailNotifications"`
}

type Service interface {
	// Get returns the tenant settings, or the defaults when no row exists.
	Get(ctx context.Context) (Settings, error)
	Update(ctx context.Context, req UpdateRequest) (Settings, error)
	// Provision creates the default row for a new tenant inside tx.
	Provision(ctx context.Context, tx *gorm.DB, t tenant.Tenant, businessName, businessEmail string) (Settings, error)
}

var (
	ErrInvalidTenant   = errors.New("invalid_tenant")
	ErrInvalidCurrency = errors.New("invalid_currency")
	ErrInvalidEmail    = errors.New("invalid_business_email")
	ErrInvalidFunding  = errors.New("invalid_business_funding")
)
