package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	"github.com/smallbiznis/tally/internal/permission"
)

type Service interface {
	permission.MemberStore

	CreateOrganization(ctx context.Context, caller *authdomain.Caller, req CreateOrganizationRequest) (*Organization, error)
	SubmitJoinRequest(ctx context.Context, caller *authdomain.Caller, req JoinOrganizationRequest) (*JoinRequest, error)
	HasPendingJoinRequest(ctx context.Context, userID snowflake.ID) (bool, error)

	// The operations below act on the organization of the tenant in ctx.
	Overview(ctx context.Context) (*Overview, error)
	DecideJoinRequest(ctx context.Context, caller *authdomain.Caller, requestID string, status string) (*JoinRequest, error)
	UpdateMemberPermission(ctx context.Context, caller *authdomain.Caller, req UpdatePermissionRequest) (*MemberView, error)
	RemoveMember(ctx context.Context, caller *authdomain.Caller, memberID string) error
}

type CreateOrganizationRequest struct {
	Name          string
	BusinessEmail string
}

type JoinOrganizationRequest struct {
	Code          string
	FullName      string
	BusinessEmail string
}

type UpdatePermissionRequest struct {
	MemberID   string
	Permission string
	Grant      bool
}

type MemberUser struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type MemberView struct {
	ID          snowflake.ID            `json:"id"`
	UserID      snowflake.ID            `json:"userId"`
	Role        authdomain.Role         `json:"role"`
	Permissions []permission.Capability `json:"permissions"`
	User        MemberUser              `json:"user"`
	CreatedAt   time.Time               `json:"createdAt"`
}

type Overview struct {
	Members          []MemberView  `json:"members"`
	OrganizationCode string        `json:"organizationCode"`
	Requests         []JoinRequest `json:"requests"`
}

var (
	ErrInvalidUser         = errors.New("invalid_user")
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidOrganization = errors.New("invalid_organization")
	ErrInvalidCode         = errors.New("invalid_organization_code")
	ErrInvalidMember       = errors.New("invalid_member_id")
	ErrInvalidRequest      = errors.New("invalid_request_id")
	ErrInvalidPermission   = errors.New("invalid_permission")
	ErrInvalidDecision     = errors.New("invalid_decision")

	ErrOrganizationNotFound = errors.New("organization_not_found")
	ErrMemberNotFound       = errors.New("member_not_found")
	ErrJoinRequestNotFound  = errors.New("join_request_not_found")

	ErrAlreadyMember   = errors.New("already_member")
	ErrAlreadyApproved = errors.New("join_request_already_approved")
	ErrRequestPending  = errors.New("join_request_already_sent")
	ErrRequestDecided  = errors.New("join_request_already_decided")
	ErrRateLimited     = errors.New("join_request_rate_limited")
	ErrUserOnboarded   = errors.New("user_already_onboarded")

	ErrAdminPermissions = errors.New("admin_permissions_immutable")
	ErrAdminRemoval     = errors.New("admin_removal_forbidden")
	ErrSelfRemoval      = errors.New("self_removal_forbidden")
)
