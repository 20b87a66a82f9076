package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
	auditdomain "github.com/smallbiznis/tally/internal/audit/domain"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	"github.com/smallbiznis/tally/internal/claimsync"
	"github.com/smallbiznis/tally/internal/clock"
	obsmetrics "github.com/smallbiznis/tally/internal/observability/metrics"
	"github.com/smallbiznis/tally/internal/organization/domain"
	"github.com/smallbiznis/tally/internal/permission"
	"github.com/smallbiznis/tally/internal/ratelimit"
	settingsdomain "github.com/smallbiznis/tally/internal/settings/domain"
	"github.com/smallbiznis/tally/internal/tenant"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Users    authdomain.Repository
	Settings settingsdomain.Service
	Claims   *claimsync.Syncer
	AuditSvc auditdomain.Service       `optional:"true"`
	Limiter  *ratelimit.JoinLimiter    `optional:"true"`
	Metrics  *obsmetrics.Metrics       `optional:"true"`
	Domain   *obsmetrics.DomainMetrics `optional:"true"`
}

type service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	users    authdomain.Repository
	settings settingsdomain.Service
	claims   *claimsync.Syncer
	auditSvc auditdomain.Service
	limiter  *ratelimit.JoinLimiter
	metrics  *obsmetrics.Metrics
	domain   *obsmetrics.DomainMetrics
}

func NewService(p Params) domain.Service {
	return &service{
		db:       p.DB,
		log:      p.Log.Named("organization.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		users:    p.Users,
		settings: p.Settings,
		claims:   p.Claims,
		auditSvc: p.AuditSvc,
		limiter:  p.Limiter,
		metrics:  p.Metrics,
		domain:   p.Domain,
	}
}

// CreateOrganization stores the organization, its ADMIN member and its
// settings in one transaction. The creator's claims follow through claimsync.
func (s *service) CreateOrganization(ctx context.Context, caller *authdomain.Caller, req domain.CreateOrganizationRequest) (*domain.Organization, error) {
	if caller == nil || caller.ID == 0 {
		return nil, domain.ErrInvalidUser
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	email := strings.TrimSpace(req.BusinessEmail)
	if email == "" {
		email = caller.Email
	}

	now := s.clock.Now()
	org := &domain.Organization{
		ID:        s.genID.Generate(),
		Name:      name,
		Slug:      slug.Make(name),
		Code:      newJoinCode(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	var job claimsync.Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)

		existing, err := repo.FindMemberByUser(ctx, caller.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyMember
		}

		if err := repo.CreateOrganization(ctx, org); err != nil {
			return err
		}

		admin := &domain.OrganizationMember{
			ID:          s.genID.Generate(),
			OrgID:       org.ID,
			UserID:      caller.ID,
			Role:        authdomain.RoleAdmin,
			Permissions: memberPermissions(permission.All()...),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.AddMember(ctx, admin); err != nil {
			return err
		}

		if _, err := s.settings.Provision(ctx, tx, tenant.Organization(org.ID), name, email); err != nil {
			return err
		}

		if err := s.users.WithTx(tx).MarkOnboarded(ctx, caller.ID, authdomain.AccountTypeOrganization); err != nil {
			return err
		}

		job, err = s.claims.Enqueue(ctx, tx, caller.ID, authdomain.Claims{
			Role:                authdomain.RoleAdmin,
			AccountType:         authdomain.AccountTypeOrganization,
			OrganizationID:      org.ID,
			OnboardingCompleted: true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.claims.ApplyAfterCommit(ctx, job)
	s.audit(ctx, org.ID, caller.ID, auditdomain.ActionOrganizationCreated, "organization", org.ID, map[string]any{
		"name": org.Name,
		"slug": org.Slug,
	})
	s.log.Info("organization created",
		zap.String("org_id", org.ID.String()),
		zap.String("user_id", caller.ID.String()),
	)
	return org, nil
}

func (s *service) SubmitJoinRequest(ctx context.Context, caller *authdomain.Caller, req domain.JoinOrganizationRequest) (*domain.JoinRequest, error) {
	if caller == nil || caller.ID == 0 {
		return nil, domain.ErrInvalidUser
	}
	code := strings.ToUpper(strings.TrimSpace(req.Code))
	if code == "" {
		return nil, domain.ErrInvalidCode
	}

	if err := s.allowJoin(ctx, caller.ID); err != nil {
		return nil, err
	}

	org, err := s.repo.FindOrganizationByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if org == nil {
		s.metrics.RecordJoinRequest(ctx, "unknown_code")
		return nil, domain.ErrOrganizationNotFound
	}

	member, err := s.repo.FindMemberByUser(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if member != nil {
		s.metrics.RecordJoinRequest(ctx, "conflict")
		return nil, domain.ErrAlreadyMember
	}

	latest, err := s.repo.LatestJoinRequest(ctx, org.ID, caller.ID)
	if err != nil {
		return nil, err
	}
	if latest != nil {
		s.metrics.RecordJoinRequest(ctx, "conflict")
		if latest.Status == domain.JoinStatusApproved {
			return nil, domain.ErrAlreadyApproved
		}
		return nil, domain.ErrRequestPending
	}

	name := strings.TrimSpace(req.FullName)
	if name == "" {
		name = caller.FullName
	}
	email := strings.TrimSpace(req.BusinessEmail)
	if email == "" {
		email = caller.Email
	}

	now := s.clock.Now()
	jr := &domain.JoinRequest{
		ID:        s.genID.Generate(),
		OrgID:     org.ID,
		UserID:    caller.ID,
		Email:     email,
		Name:      name,
		Status:    domain.JoinStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.repo.CreateJoinRequest(ctx, jr); err != nil {
		return nil, err
	}

	s.metrics.RecordJoinRequest(ctx, "submitted")
	s.domain.IncJoinTransition("", string(domain.JoinStatusPending))
	s.audit(ctx, org.ID, caller.ID, auditdomain.ActionJoinRequestSubmitted, "join_request", jr.ID, map[string]any{
		"email": jr.Email,
	})
	return jr, nil
}

func (s *service) HasPendingJoinRequest(ctx context.Context, userID snowflake.ID) (bool, error) {
	if userID == 0 {
		return false, domain.ErrInvalidUser
	}
	return s.repo.HasPendingJoinRequest(ctx, userID)
}

func (s *service) Overview(ctx context.Context) (*domain.Overview, error) {
	orgID, err := organizationFromContext(ctx)
	if err != nil {
		return nil, err
	}

	org, err := s.repo.FindOrganization(ctx, orgID)
	if err != nil {
		return nil, err
	}
	if org == nil {
		return nil, domain.ErrOrganizationNotFound
	}

	members, err := s.repo.ListMembers(ctx, orgID)
	if err != nil {
		return nil, err
	}
	views, err := s.memberViews(ctx, members)
	if err != nil {
		return nil, err
	}

	requests, err := s.repo.ListJoinRequests(ctx, orgID, domain.JoinStatusPending)
	if err != nil {
		return nil, err
	}

	return &domain.Overview{
		Members:          views,
		OrganizationCode: org.Code,
		Requests:         requests,
	}, nil
}

// DecideJoinRequest approves or rejects a PENDING request. Approval adds the
// member with {READ}, marks the user onboarded and queues the claims update in
// the same transaction; the update is pushed right after commit.
// Approving a user who has onboarded since submitting fails with
// ErrUserOnboarded.
func (s *service) DecideJoinRequest(ctx context.Context, caller *authdomain.Caller, requestID string, status string) (*domain.JoinRequest, error) {
	orgID, err := organizationFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if caller == nil || caller.ID == 0 {
		return nil, domain.ErrInvalidUser
	}
	id, err := parseID(requestID, domain.ErrInvalidRequest)
	if err != nil {
		return nil, err
	}
	decision := domain.JoinStatus(strings.ToUpper(strings.TrimSpace(status)))
	if decision != domain.JoinStatusApproved && decision != domain.JoinStatusRejected {
		return nil, domain.ErrInvalidDecision
	}

	jr, err := s.repo.FindJoinRequest(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if jr == nil {
		return nil, domain.ErrJoinRequestNotFound
	}
	if jr.Status != domain.JoinStatusPending {
		return nil, domain.ErrRequestDecided
	}

	now := s.clock.Now()
	decidedBy := caller.ID
	jr.DecidedBy = &decidedBy
	jr.DecidedAt = &now

	var job claimsync.Job
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		users := s.users.WithTx(tx)

		if decision == domain.JoinStatusApproved {
			// The user may have onboarded elsewhere while the request waited.
			user, err := users.FindByID(ctx, jr.UserID)
			if err != nil {
				return err
			}
			if user.IsOnboarded {
				return domain.ErrUserOnboarded
			}
		}

		ok, err := repo.TransitionJoinRequest(ctx, jr, decision)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrRequestDecided
		}
		if decision == domain.JoinStatusRejected {
			return nil
		}

		existing, err := repo.FindMemberByUser(ctx, jr.UserID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyMember
		}

		member := &domain.OrganizationMember{
			ID:          s.genID.Generate(),
			OrgID:       orgID,
			UserID:      jr.UserID,
			Role:        authdomain.RoleMember,
			Permissions: memberPermissions(permission.Read),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if err := repo.AddMember(ctx, member); err != nil {
			return err
		}

		if err := users.MarkOnboarded(ctx, jr.UserID, authdomain.AccountTypeOrganization); err != nil {
			return err
		}

		job, err = s.claims.Enqueue(ctx, tx, jr.UserID, authdomain.Claims{
			Role:                authdomain.RoleMember,
			AccountType:         authdomain.AccountTypeOrganization,
			OrganizationID:      orgID,
			OnboardingCompleted: true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.claims.ApplyAfterCommit(ctx, job)
	s.domain.IncJoinTransition(string(domain.JoinStatusPending), string(decision))
	s.metrics.RecordJoinRequest(ctx, strings.ToLower(string(decision)))
	s.audit(ctx, orgID, caller.ID, joinDecisionAction(decision), "join_request", jr.ID, map[string]any{
		"user_id": jr.UserID.String(),
		"email":   jr.Email,
	})
	return jr, nil
}

func (s *service) UpdateMemberPermission(ctx context.Context, caller *authdomain.Caller, req domain.UpdatePermissionRequest) (*domain.MemberView, error) {
	orgID, err := organizationFromContext(ctx)
	if err != nil {
		return nil, err
	}
	if caller == nil || caller.ID == 0 {
		return nil, domain.ErrInvalidUser
	}
	memberID, err := parseID(req.MemberID, domain.ErrInvalidMember)
	if err != nil {
		return nil, err
	}
	capability, ok := permission.Parse(req.Permission)
	if !ok {
		return nil, domain.ErrInvalidPermission
	}

	member, err := s.repo.FindMember(ctx, orgID, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, domain.ErrMemberNotFound
	}
	if member.IsAdmin() {
		return nil, domain.ErrAdminPermissions
	}

	action := auditdomain.ActionPermissionGranted
	if req.Grant {
		err = s.repo.GrantPermission(ctx, member.ID, capability)
	} else {
		action = auditdomain.ActionPermissionRevoked
		err = s.repo.RevokePermission(ctx, member.ID, capability)
	}
	if err != nil {
		return nil, err
	}

	member, err = s.repo.FindMember(ctx, orgID, memberID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, domain.ErrMemberNotFound
	}
	views, err := s.memberViews(ctx, []domain.OrganizationMember{*member})
	if err != nil {
		return nil, err
	}

	s.audit(ctx, orgID, caller.ID, action, "member", member.ID, map[string]any{
		"user_id":    member.UserID.String(),
		"permission": string(capability),
	})
	return &views[0], nil
}

func (s *service) RemoveMember(ctx context.Context, caller *authdomain.Caller, memberID string) error {
	orgID, err := organizationFromContext(ctx)
	if err != nil {
		return err
	}
	if caller == nil || caller.ID == 0 {
		return domain.ErrInvalidUser
	}
	id, err := parseID(memberID, domain.ErrInvalidMember)
	if err != nil {
		return err
	}

	member, err := s.repo.FindMember(ctx, orgID, id)
	if err != nil {
		return err
	}
	if member == nil {
		return domain.ErrMemberNotFound
	}
	if member.IsAdmin() {
		return domain.ErrAdminRemoval
	}
	if member.UserID == caller.ID {
		return domain.ErrSelfRemoval
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return s.repo.WithTx(tx).DeleteMember(ctx, member.ID)
	})
	if err != nil {
		return err
	}

	s.audit(ctx, orgID, caller.ID, auditdomain.ActionMemberRemoved, "member", member.ID, map[string]any{
		"user_id": member.UserID.String(),
	})
	return nil
}

// MemberByUser implements permission.MemberStore.
func (s *service) MemberByUser(ctx context.Context, userID snowflake.ID) (*permission.Member, error) {
	member, err := s.repo.FindMemberByUser(ctx, userID)
	if err != nil || member == nil {
		return nil, err
	}
	return &permission.Member{
		ID:          member.ID,
		OrgID:       member.OrgID,
		UserID:      member.UserID,
		Role:        member.Role,
		Permissions: member.PermissionSet(),
	}, nil
}

func (s *service) allowJoin(ctx context.Context, userID snowflake.ID) error {
	if s.limiter == nil {
		return nil
	}
	res, err := s.limiter.Allow(ctx, userID.String())
	if err != nil {
		// redis outages must not block onboarding
		s.log.Warn("join rate limit check failed", zap.Error(err))
		return nil
	}
	s.metrics.RecordJoinThrottle(ctx, res.Allowed)
	if !res.Allowed {
		return domain.ErrRateLimited
	}
	return nil
}

func (s *service) memberViews(ctx context.Context, members []domain.OrganizationMember) ([]domain.MemberView, error) {
	ids := make([]snowflake.ID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	users, err := s.users.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[snowflake.ID]authdomain.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	views := make([]domain.MemberView, 0, len(members))
	for _, m := range members {
		u := byID[m.UserID]
		views = append(views, domain.MemberView{
			ID:          m.ID,
			UserID:      m.UserID,
			Role:        m.Role,
			Permissions: m.PermissionSet().Sorted(),
			User:        domain.MemberUser{Name: u.FullName, Email: u.Email},
			CreatedAt:   m.CreatedAt,
		})
	}
	return views, nil
}

func (s *service) audit(ctx context.Context, orgID, actorID snowflake.ID, action, targetType string, targetID snowflake.ID, metadata map[string]any) {
	if s.auditSvc == nil {
		return
	}
	if err := s.auditSvc.Record(ctx, auditdomain.Entry{
		OrgID:      orgID,
		ActorType:  auditdomain.ActorTypeUser,
		ActorID:    actorID.String(),
		Action:     action,
		TargetType: targetType,
		TargetID:   targetID.String(),
		Metadata:   metadata,
	}); err != nil {
		s.log.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

func organizationFromContext(ctx context.Context) (snowflake.ID, error) {
	t, ok := tenant.FromContext(ctx)
	if !ok || !t.IsOrganization() {
		return 0, domain.ErrInvalidOrganization
	}
	return t.ID(), nil
}

func memberPermissions(caps ...permission.Capability) []domain.MemberPermission {
	out := make([]domain.MemberPermission, 0, len(caps))
	for _, c := range caps {
		out = append(out, domain.MemberPermission{Permission: c})
	}
	return out
}

func parseID(raw string, invalid error) (snowflake.ID, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, invalid
	}
	id, err := snowflake.ParseString(raw)
	if err != nil || id == 0 {
		return 0, invalid
	}
	return id, nil
}

// newJoinCode returns the random tail of a ULID: ten Crockford base32 characters.
func newJoinCode() string {
	return ulid.Make().String()[16:]
}

func joinDecisionAction(decision domain.JoinStatus) string {
	if decision == domain.JoinStatusApproved {
		return auditdomain.ActionJoinRequestApproved
	}
	return auditdomain.ActionJoinRequestRejected
}
