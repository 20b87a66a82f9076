package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tally/internal/organization/domain"
	"github.com/smallbiznis/tally/internal/permission"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) domain.Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) domain.Repository {
	return &repository{db: tx}
}

func (r *repository) CreateOrganization(ctx context.Context, org *domain.Organization) error {
	return r.db.WithContext(ctx).Exec(
		`INSERT INTO organizations (id, name, slug, code, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		org.ID,
		org.Name,
		org.Slug,
		org.Code,
		org.CreatedAt,
		org.UpdatedAt,
	).Error
}

func (r *repository) FindOrganization(ctx context.Context, id snowflake.ID) (*domain.Organization, error) {
	var org domain.Organization
	return first(r.db.WithContext(ctx).Where("id = ?", id), &org)
}

func (r *repository) FindOrganizationByCode(ctx context.Context, code string) (*domain.Organization, error) {
	var org domain.Organization
	return first(r.db.WithContext(ctx).Where("code = ?", code), &org)
}

func (r *repository) AddMember(ctx context.Context, member *domain.OrganizationMember) error {
	return r.db.WithContext(ctx).Create(member).Error
}

func (r *repository) FindMember(ctx context.Context, orgID, memberID snowflake.ID) (*domain.OrganizationMember, error) {
	var member domain.OrganizationMember
	return first(r.db.WithContext(ctx).
		Preload("Permissions").
		Where("organization_id = ? AND id = ?", orgID, memberID), &member)
}

func (r *repository) FindMemberByUser(ctx context.Context, userID snowflake.ID) (*domain.OrganizationMember, error) {
	var member domain.OrganizationMember
	return first(r.db.WithContext(ctx).
		Preload("Permissions").
		Where("user_id = ?", userID), &member)
}

func (r *repository) ListMembers(ctx context.Context, orgID snowflake.ID) ([]domain.OrganizationMember, error) {
	members := make([]domain.OrganizationMember, 0)
	err := r.db.WithContext(ctx).
		Preload("Permissions").
		Where("organization_id = ?", orgID).
		Order("created_at asc, id asc").
		Find(&members).Error
	return members, err
}

func (r *repository) GrantPermission(ctx context.Context, memberID snowflake.ID, capability permission.Capability) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.MemberPermission{MemberID: memberID, Permission: capability}).Error
}

func (r *repository) RevokePermission(ctx context.Context, memberID snowflake.ID, capability permission.Capability) error {
	return r.db.WithContext(ctx).
		Where("member_id = ? AND permission = ?", memberID, capability).
		Delete(&domain.MemberPermission{}).Error
}

func (r *repository) DeleteMember(ctx context.Context, memberID snowflake.ID) error {
	if err := r.db.WithContext(ctx).Where("member_id = ?", memberID).Delete(&domain.MemberPermission{}).Error; err != nil {
		return err
	}
	return r.db.WithContext(ctx).Where("id = ?", memberID).Delete(&domain.OrganizationMember{}).Error
}

func (r *repository) CreateJoinRequest(ctx context.Context, req *domain.JoinRequest) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) FindJoinRequest(ctx context.Context, orgID, requestID snowflake.ID) (*domain.JoinRequest, error) {
	var req domain.JoinRequest
	return first(r.db.WithContext(ctx).Where("organization_id = ? AND id = ?", orgID, requestID), &req)
}

func (r *repository) LatestJoinRequest(ctx context.Context, orgID, userID snowflake.ID) (*domain.JoinRequest, error) {
	var req domain.JoinRequest
	return first(r.db.WithContext(ctx).
		Where("organization_id = ? AND user_id = ? AND status IN ?", orgID, userID,
			[]domain.JoinStatus{domain.JoinStatusPending, domain.JoinStatusApproved}).
		Order("id desc"), &req)
}

func (r *repository) HasPendingJoinRequest(ctx context.Context, userID snowflake.ID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.JoinRequest{}).
		Where("user_id = ? AND status = ?", userID, domain.JoinStatusPending).
		Count(&count).Error
	return count > 0, err
}

func (r *repository) ListJoinRequests(ctx context.Context, orgID snowflake.ID, status domain.JoinStatus) ([]domain.JoinRequest, error) {
	requests := make([]domain.JoinRequest, 0)
	err := r.db.WithContext(ctx).
		Where("organization_id = ? AND status = ?", orgID, status).
		Order("created_at asc, id asc").
		Find(&requests).Error
	return requests, err
}

func (r *repository) TransitionJoinRequest(ctx context.Context, req *domain.JoinRequest, status domain.JoinStatus) (bool, error) {
	now := time.Now().UTC()
	if req.DecidedAt != nil {
		now = *req.DecidedAt
	}
	res := r.db.WithContext(ctx).Model(&domain.JoinRequest{}).
		Where("id = ? AND status = ?", req.ID, domain.JoinStatusPending).
		Updates(map[string]any{
			"status":     status,
			"decided_by": req.DecidedBy,
			"decided_at": now,
			"updated_at": now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	req.Status = status
	req.DecidedAt = &now
	req.UpdatedAt = now
	return true, nil
}

func first[T any](stmt *gorm.DB, dest *T) (*T, error) {
	err := stmt.First(dest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return dest, nil
}
