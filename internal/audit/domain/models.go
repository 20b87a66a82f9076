package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tally/pkg/db/pagination"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ActorTypeUser   = "user"
	ActorTypeSystem = "system"
)

const (
	ActionUserRegistered       = "user.registered"
	ActionUserLogin            = "user.login"
	ActionUserLoginFailed      = "user.login_failed"
	ActionAuthorizationDenied  = "authorization.denied"
	ActionOrganizationCreated  = "organization.created"
	ActionJoinRequestSubmitted = "organization.join_request.submitted"
	ActionJoinRequestApproved  = "organization.join_request.approved"
	ActionJoinRequestRejected  = "organization.join_request.rejected"
	ActionPermissionGranted    = "organization.member.permission_granted"
	ActionPermissionRevoked    = "organization.member.permission_revoked"
	ActionMemberRemoved        = "organization.member.removed"
)

// AuditLog records a sign-in, membership or authorization event.
// Events outside an organization carry no OrgID.
type AuditLog struct {
	ID         snowflake.ID      `json:"id" gorm:"primaryKey"`
	OrgID      *snowflake.ID     `json:"organization_id,omitempty" gorm:"index"`
	ActorType  string            `json:"actor_type" gorm:"type:varchar(32);not null"`
	ActorID    *string           `json:"actor_id,omitempty" gorm:"type:varchar(64)"`
	Action     string            `json:"action" gorm:"type:varchar(128);not null;index"`
	TargetType string            `json:"target_type" gorm:"type:varchar(64);not null"`
	TargetID   *string           `json:"target_id,omitempty" gorm:"type:varchar(64)"`
	Metadata   datatypes.JSONMap `json:"metadata,omitempty"`
	IPAddress  *string           `json:"ip_address,omitempty" gorm:"type:varchar(64)"`
	UserAgent  *string           `json:"user_agent,omitempty"`
	CreatedAt  time.Time         `json:"created_at" gorm:"not null;index"`
}

func (AuditLog) TableName() string { return "audit_logs" }

func (l AuditLog) Keyset() pagination.Keyset {
	return pagination.Keyset{CreatedAt: l.CreatedAt, ID: int64(l.ID)}
}

type ListFilter struct {
	OrgID      snowflake.ID
	Action     string
	TargetType string
	TargetID   string
	ActorType  string
	StartAt    *time.Time
	EndAt      *time.Time
	After      *pagination.Keyset
	Limit      int
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]AuditLog, error)
}
