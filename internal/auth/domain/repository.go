package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	Create(ctx context.Context, user *User) error
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByID(ctx context.Context, id snowflake.ID) (*User, error)
	FindByIDs(ctx context.Context, ids []snowflake.ID) ([]User, error)
	UpdateClaims(ctx context.Context, id snowflake.ID, claims Claims) error
	MarkOnboarded(ctx context.Context, id snowflake.ID, accountType AccountType) error
}
