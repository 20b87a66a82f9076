package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tally/internal/permission"
	"gorm.io/gorm"
)

type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrganization(ctx context.Context, org *Organization) error
	FindOrganization(ctx context.Context, id snowflake.ID) (*Organization, error)
	FindOrganizationByCode(ctx context.Context, code string) (*Organization, error)

	AddMember(ctx context.Context, member *OrganizationMember) error
	FindMember(ctx context.Context, orgID, memberID snowflake.ID) (*OrganizationMember, error)
	FindMemberByUser(ctx context.Context, userID snowflake.ID) (*OrganizationMember, error)
	ListMembers(ctx context.Context, orgID snowflake.ID) ([]OrganizationMember, error)
	GrantPermission(ctx context.Context, memberID snowflake.ID, capability permission.Capability) error
	RevokePermission(ctx context.Context, memberID snowflake.ID, capability permission.Capability) error
	DeleteMember(ctx context.Context, memberID snowflake.ID) error

	CreateJoinRequest(ctx context.Context, req *JoinRequest) error
	FindJoinRequest(ctx context.Context, orgID, requestID snowflake.ID) (*JoinRequest, error)
	LatestJoinRequest(ctx context.Context, orgID, userID snowflake.ID) (*JoinRequest, error)
	HasPendingJoinRequest(ctx context.Context, userID snowflake.ID) (bool, error)
	ListJoinRequests(ctx context.Context, orgID snowflake.ID, status JoinStatus) ([]JoinRequest, error)
	// TransitionJoinRequest moves a PENDING request to status and reports
	// whether this call performed the transition.
	TransitionJoinRequest(ctx context.Context, req *JoinRequest, status JoinStatus) (bool, error)
}
