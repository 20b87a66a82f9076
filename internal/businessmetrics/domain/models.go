package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// BusinessMetrics is the cached revenue/expense summary of one tenant.
type BusinessMetrics struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID             *snowflake.ID   `gorm:"column:organization_id;uniqueIndex" json:"organizationId,omitempty"`
	PersonalAccountID *snowflake.ID   `gorm:"column:personal_account_id;uniqueIndex" json:"personalAccountId,omitempty"`
	Revenue           decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"revenue"`
	Expenses          decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"expenses"`
	Profit            decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"profit"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updatedAt"`
}

func (BusinessMetrics) TableName() string { return "business_metrics" }

// Totals are the raw sums a recomputation is derived from.
type Totals struct {
	Revenue  decimal.Decimal
	Expenses decimal.Decimal
}
