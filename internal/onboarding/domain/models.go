package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// PersonalAccount is the single-owner tenant of a user who onboarded alone.
type PersonalAccount struct {
	ID           snowflake.ID    `gorm:"primaryKey" json:"id"`
	UserID       snowflake.ID    `gorm:"not null;uniqueIndex:ux_personal_accounts_user" json:"userId"`
	BusinessName string          `gorm:"type:text" json:"businessName"`
	Funding      decimal.Decimal `gorm:"type:decimal(20,2);not null;default:0" json:"funding"`
	CreatedAt    time.Time       `gorm:"not null" json:"createdAt"`
	UpdatedAt    time.Time       `gorm:"not null" json:"updatedAt"`
}

func (PersonalAccount) TableName() string { return "personal_accounts" }
