package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Settings is the single business configuration row of a tenant.
type Settings struct {
	ID                   snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID                *snowflake.ID   `gorm:"column:organization_id;uniqueIndex" json:"organizationId,omitempty"`
	PersonalAccountID    *snowflake.ID   `gorm:"column:personal_account_id;uniqueIndex" json:"personalAccountId,omitempty"`
	BusinessName         string          `gorm:"not null;default:''" json:"businessName"`
	BusinessEmail        string          `gorm:"not null;default:''" json:"businessEmail"`
	Currency             string          `gorm:"type:varchar(3);not null" json:"currency"`
	BusinessFunding      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"businessFunding"`
	NotificationsEnabled bool            `gorm:"not null" json:"notificationsEnabled"`
	EmailNotifications   bool            `gorm:"not null" json:"emailNotifications"`
	CreatedAt            time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt            time.Time       `gorm:"not null" json:"updatedAt"`
}

func (Settings) TableName() string { return "settings" }
