package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type CreateItemRequest struct {
	Name      string          `json:"name"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

type CreateFeeRequest struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
}

type CreateOrderRequest struct {
	CustomerName    string              `json:"customerName"`
	DeliveryAddress string              `json:"deliveryAddress"`
	DeliveryTime    *time.Time          `json:"deliveryTime"`
	Description     string              `json:"description"`
	IsCompleted     bool                `json:"isCompleted"`
	TotalAmount     *decimal.Decimal    `json:"totalAmount"`
	Items           []CreateItemRequest `json:"orderItems"`
	Fees            []CreateFeeRequest  `json:"additionalFees"`
}

// Action is the operation of the order action endpoint.
type Action string

const (
	ActionToggle Action = "toggle"
	ActionDelete Action = "delete"
)

type Service interface {
	List(ctx context.Context, filter ListFilter) ([]Order, error)
	Get(ctx context.Context, id string) (Order, error)
	Create(ctx context.Context, createdBy snowflake.ID, req CreateOrderRequest) (Order, error)
	// Toggle flips the completion flag. Completing an order refreshes the
	// tenant's business metrics.
	Toggle(ctx context.Context, id string) (Order, error)
	Delete(ctx context.Context, id string) (Order, error)
}

var (
	ErrInvalidTenant       = errors.New("invalid_tenant")
	ErrInvalidID           = errors.New("invalid_order_id")
	ErrInvalidCustomerName = errors.New("invalid_customer_name")
	ErrInvalidItem         = errors.New("invalid_order_item")
	ErrInvalidFee          = errors.New("invalid_additional_fee")
	ErrInvalidAmount       = errors.New("invalid_total_amount")
	ErrInvalidAction       = errors.New("invalid_action")
	ErrNotFound            = errors.New("order_not_found")
)
