package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tally/internal/auth/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type repo struct {
	db *gorm.DB
}

func New(db *gorm.DB) domain.Repository {
	return &repo{db: db}
}

func (r *repo) WithTx(tx *gorm.DB) domain.Repository {
	return &repo{db: tx}
}

func (r *repo) Create(ctx context.Context, user *domain.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *repo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindByID(ctx context.Context, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindByIDs(ctx context.Context, ids []snowflake.ID) ([]domain.User, error) {
	var users []domain.User
	if len(ids) == 0 {
		return users, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error
	return users, err
}

func (r *repo) UpdateClaims(ctx context.Context, id snowflake.ID, claims domain.Claims) error {
	fields := map[string]any{
		"claims":     datatypes.NewJSONType(claims),
		"updated_at": time.Now().UTC(),
	}
	if claims.AccountType != "" {
		fields["account_type"] = string(claims.AccountType)
	}
	if claims.OnboardingCompleted {
		fields["is_onboarded"] = true
	}
	return r.updateFields(ctx, id, fields)
}

func (r *repo) MarkOnboarded(ctx context.Context, id snowflake.ID, accountType domain.AccountType) error {
	return r.updateFields(ctx, id, map[string]any{
		"is_onboarded": true,
		"account_type": string(accountType),
		"updated_at":   time.Now().UTC(),
	})
}

func (r *repo) updateFields(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&domain.User{}).Where("id = ?", id).Updates(fields)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}
