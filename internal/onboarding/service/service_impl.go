package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	"github.com/smallbiznis/tally/internal/claimsync"
	"github.com/smallbiznis/tally/internal/clock"
	"github.com/smallbiznis/tally/internal/onboarding/domain"
	orgdomain "github.com/smallbiznis/tally/internal/organization/domain"
	settingsdomain "github.com/smallbiznis/tally/internal/settings/domain"
	"github.com/smallbiznis/tally/internal/tenant"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB            *gorm.DB
	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	Repo          domain.Repository
	Users         authdomain.Repository
	Organizations orgdomain.Service
	Settings      settingsdomain.Service
	Claims        *claimsync.Syncer
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	users    authdomain.Repository
	orgs     orgdomain.Service
	settings settingsdomain.Service
	claims   *claimsync.Syncer
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("onboarding.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		users:    p.Users,
		orgs:     p.Organizations,
		settings: p.Settings,
		claims:   p.Claims,
	}
}

func (s *Service) Onboard(ctx context.Context, caller *authdomain.Caller, req domain.Request) (*domain.Result, error) {
	user, err := s.user(ctx, caller)
	if err != nil {
		return nil, err
	}
	if user.IsOnboarded {
		return nil, domain.ErrAlreadyOnboarded
	}

	email := strings.TrimSpace(req.BusinessEmail)
	if email != "" && !strings.Contains(email, "@") {
		return nil, domain.ErrInvalidEmail
	}

	choice := domain.Choice(strings.ToLower(strings.TrimSpace(req.AccountType)))
	if choice == domain.ChoicePersonal || choice == domain.ChoiceCreate {
		// A pending join request would otherwise leave the user with two tenants.
		pending, err := s.orgs.HasPendingJoinRequest(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		if pending {
			return nil, domain.ErrJoinRequestPending
		}
	}

	switch choice {
	case domain.ChoicePersonal:
		account, err := s.createPersonal(ctx, user, strings.TrimSpace(req.OrganizationName), email)
		if err != nil {
			return nil, err
		}
		return &domain.Result{
			Message:           "Personal account created successfully",
			AccountType:       choice,
			PersonalAccountID: &account.ID,
		}, nil

	case domain.ChoiceCreate:
		org, err := s.orgs.CreateOrganization(ctx, caller, orgdomain.CreateOrganizationRequest{
			Name:          req.OrganizationName,
			BusinessEmail: email,
		})
		if err != nil {
			return nil, err
		}
		return &domain.Result{
			Message:      "Organization account created successfully",
			AccountType:  choice,
			Organization: org,
		}, nil

	case domain.ChoiceJoin:
		jr, err := s.orgs.SubmitJoinRequest(ctx, caller, orgdomain.JoinOrganizationRequest{
			Code:          req.OrganizationCode,
			FullName:      req.FullName,
			BusinessEmail: email,
		})
		if err != nil {
			return nil, err
		}
		return &domain.Result{
			Message:     "Organization join request sent successfully",
			AccountType: choice,
			JoinRequest: jr,
		}, nil
	}

	return nil, domain.ErrInvalidAccountType
}

func (s *Service) Status(ctx context.Context, caller *authdomain.Caller) (*domain.Status, error) {
	user, err := s.user(ctx, caller)
	if err != nil {
		return nil, err
	}
	pending, err := s.orgs.HasPendingJoinRequest(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	return &domain.Status{
		OnboardingCompleted: user.IsOnboarded,
		AccountType:         user.AccountType,
		HasPendingRequest:   pending,
	}, nil
}

// createPersonal stores the personal account and its settings row in one
// transaction and queues the PERSONAL claims.
func (s *Service) createPersonal(ctx context.Context, user *authdomain.User, businessName, email string) (*domain.PersonalAccount, error) {
	if email == "" {
		email = user.Email
	}
	now := s.clock.Now()
	account := &domain.PersonalAccount{
		ID:           s.genID.Generate(),
		UserID:       user.ID,
		BusinessName: businessName,
		Funding:      decimal.Zero,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var job claimsync.Job
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		existing, err := s.repo.FindByUser(ctx, tx, user.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return domain.ErrAlreadyOnboarded
		}
		if err := s.repo.Insert(ctx, tx, account); err != nil {
			return err
		}
		if _, err := s.settings.Provision(ctx, tx, tenant.Personal(account.ID), businessName, email); err != nil {
			return err
		}
		if err := s.users.WithTx(tx).MarkOnboarded(ctx, user.ID, authdomain.AccountTypePersonal); err != nil {
			return err
		}
		job, err = s.claims.Enqueue(ctx, tx, user.ID, authdomain.Claims{
			AccountType:         authdomain.AccountTypePersonal,
			PersonalAccountID:   account.ID,
			OnboardingCompleted: true,
		})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.claims.ApplyAfterCommit(ctx, job)
	s.log.Info("personal account created",
		zap.String("user_id", user.ID.String()),
		zap.String("personal_account_id", account.ID.String()),
	)
	return account, nil
}

func (s *Service) user(ctx context.Context, caller *authdomain.Caller) (*authdomain.User, error) {
	if caller == nil || caller.ID == 0 {
		return nil, domain.ErrInvalidUser
	}
	user, err := s.users.FindByID(ctx, caller.ID)
	if errors.Is(err, authdomain.ErrUserNotFound) {
		return nil, domain.ErrInvalidUser
	}
	return user, err
}
