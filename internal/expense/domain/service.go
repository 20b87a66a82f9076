package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CreateItemRequest struct {
	Description string          `json:"description"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unitPrice"`
}

type CreateExpenseRequest struct {
	Description string              `json:"description"`
	Amount      decimal.Decimal     `json:"amount"`
	Category    string              `json:"category"`
	Vendor      string              `json:"vendor"`
	Date        *time.Time          `json:"date"`
	ReceiptURL  string              `json:"receiptUrl"`
	Items       []CreateItemRequest `json:"items"`
}

type Service interface {
	List(ctx context.Context, filter ListFilter) ([]Expense, error)
	// Create stores the expense and refreshes the tenant's business metrics.
	Create(ctx context.Context, createdBy snowflake.ID, req CreateExpenseRequest) (Expense, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidTenant      = errors.New("invalid_tenant")
	ErrInvalidID          = errors.New("invalid_expense_id")
	ErrInvalidDescription = errors.New("invalid_description")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidCategory    = errors.New("invalid_category")
	ErrInvalidItem        = errors.New("invalid_expense_item")
	ErrNotFound           = errors.New("expense_not_found")
)
