// Package domain contains persistence models for the organization service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	"github.com/smallbiznis/tally/internal/permission"
)

// Organization represents a tenant shared by several users.
type Organization struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Slug      string       `gorm:"type:text;not null;index" json:"slug"`
	Code      string       `gorm:"type:varchar(16);not null;uniqueIndex:ux_organizations_code" json:"code"`
	CreatedAt time.Time    `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time    `gorm:"not null" json:"updatedAt"`
}

// TableName sets the database table name.
func (Organization) TableName() string { return "organizations" }

// OrganizationMember represents membership of a user in an organization.
// A user belongs to at most one organization.
type OrganizationMember struct {
	ID          snowflake.ID       `gorm:"primaryKey" json:"id"`
	OrgID       snowflake.ID       `gorm:"column:organization_id;not null;index" json:"organizationId"`
	UserID      snowflake.ID       `gorm:"not null;uniqueIndex:ux_organization_members_user" json:"userId"`
	Role        authdomain.Role    `gorm:"type:varchar(16);not null" json:"role"`
	Permissions []MemberPermission `gorm:"foreignKey:MemberID;constraint:OnDelete:CASCADE" json:"-"`
	CreatedAt   time.Time          `gorm:"not null" json:"createdAt"`
	UpdatedAt   time.Time          `gorm:"not null" json:"updatedAt"`
}

// TableName sets the database table name.
func (OrganizationMember) TableName() string { return "organization_members" }

func (m OrganizationMember) PermissionSet() permission.Set {
	set := make(permission.Set, len(m.Permissions))
	for _, p := range m.Permissions {
		set[p.Permission] = struct{}{}
	}
	return set
}

func (m OrganizationMember) IsAdmin() bool {
	return m.Role == authdomain.RoleAdmin
}

// MemberPermission is one capability held by a member.
type MemberPermission struct {
	MemberID   snowflake.ID          `gorm:"primaryKey"`
	Permission permission.Capability `gorm:"primaryKey;type:varchar(32)"`
}

// TableName sets the database table name.
func (MemberPermission) TableName() string { return "organization_member_permissions" }

type JoinStatus string

const (
	JoinStatusPending  JoinStatus = "PENDING"
	JoinStatusApproved JoinStatus = "APPROVED"
	JoinStatusRejected JoinStatus = "REJECTED"
)

// JoinRequest is a user's request to enter an organization. It moves from
// PENDING to APPROVED or REJECTED exactly once.
type JoinRequest struct {
	ID        snowflake.ID  `gorm:"primaryKey" json:"id"`
	OrgID     snowflake.ID  `gorm:"column:organization_id;not null;index:ix_join_requests_org_user,priority:1" json:"organizationId"`
	UserID    snowflake.ID  `gorm:"not null;index:ix_join_requests_org_user,priority:2" json:"userId"`
	Email     string        `gorm:"type:text;not null" json:"email"`
	Name      string        `gorm:"type:text" json:"name"`
	Status    JoinStatus    `gorm:"type:varchar(16);not null;index" json:"status"`
	DecidedBy *snowflake.ID `json:"decidedBy,omitempty"`
	DecidedAt *time.Time    `json:"decidedAt,omitempty"`
	CreatedAt time.Time     `gorm:"not null" json:"createdAt"`
	UpdatedAt time.Time     `gorm:"not null" json:"updatedAt"`
}

// TableName sets the database table name.
func (JoinRequest) TableName() string { return "organization_join_requests" }
