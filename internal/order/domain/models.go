package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Order struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrgID             *snowflake.ID   `gorm:"column:organization_id;index" json:"organizationId,omitempty"`
	PersonalAccountID *snowflake.ID   `gorm:"column:personal_account_id;index" json:"personalAccountId,omitempty"`
	CustomerName      string          `gorm:"not null" json:"customerName"`
	DeliveryAddress   string          `gorm:"not null;default:''" json:"deliveryAddress"`
	DeliveryTime      *time.Time      `json:"deliveryTime,omitempty"`
	IsCompleted       bool            `gorm:"not null;default:false;index" json:"isCompleted"`
	TotalAmount       decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"totalAmount"`
	Description       string          `gorm:"not null;default:''" json:"description"`
	CreatedBy         snowflake.ID    `gorm:"not null" json:"createdBy"`
	CreatedAt         time.Time       `gorm:"not null;index" json:"createdAt"`
	UpdatedAt         time.Time       `gorm:"not null" json:"updatedAt"`
	Items             []OrderItem     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"orderItems"`
	Fees              []AdditionalFee `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"additionalFees"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID         snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderID    snowflake.ID    `gorm:"not null;index" json:"orderId"`
	Name       string          `gorm:"not null" json:"name"`
	Quantity   int             `gorm:"not null" json:"quantity"`
	UnitPrice  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"unitPrice"`
	TotalPrice decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"totalPrice"`
}

func (OrderItem) TableName() string { return "order_items" }

type AdditionalFee struct {
	ID      snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderID snowflake.ID    `gorm:"not null;index" json:"orderId"`
	Name    string          `gorm:"not null" json:"name"`
	Amount  decimal.Decimal `gorm:"type:decimal(20,2);not null" json:"amount"`
}

func (AdditionalFee) TableName() string { return "additional_fees" }
