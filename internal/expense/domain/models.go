package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Expense.Amount is authoritative and is not derived from its items.
type Expense struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID             *snowflake.ID   `gorm:"column:organization_id;index" json:"organizationId,omitempty"`
	PersonalAccountID *snowflake.ID   `gorm:"column:personal_account_id;index" json:"personalAccountId,omitempty"`
	Description       string          `gorm:"not null" json:"description"`
	Amount            decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
	Category          string          `gorm:"not null;index" json:"category"`
	Vendor            string          `gorm:"not null;default:''" json:"vendor"`
	Date              time.Time       `gorm:"not null;index" json:"date"`
	ReceiptURL        string          `gorm:"column:receipt_url;not null;default:''" json:"receiptUrl,omitempty"`
	CreatedBy         snowflake.ID    `gorm:"not null" json:"createdBy"`
	CreatedAt         time.Time       `gorm:"not null;index" json:"createdAt"`
	Items             []ExpenseItem   `gorm:"foreignKey:ExpenseID;constraint:OnDelete:CASCADE" json:"items"`
}

func (Expense) TableName() string { return "expenses" }

type ExpenseItem struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	ExpenseID   snowflake.ID    `gorm:"not null;index" json:"expenseId"`
	Description string          `gorm:"not null" json:"description"`
	Quantity    int             `gorm:"not null" json:"quantity"`
	UnitPrice   decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"unitPrice"`
	Total       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"total"`
}

func (ExpenseItem) TableName() string { return "expense_items" }
