package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	authdomain "github.com/smallbiznis/tally/internal/auth/domain"
	orgdomain "github.com/smallbiznis/tally/internal/organization/domain"
)

type Choice string

const (
	ChoicePersonal Choice = "personal"
	ChoiceCreate   Choice = "create"
	ChoiceJoin     Choice = "join"
)

type Request struct {
	AccountType      string `json:"accountType"`
	FullName         string `json:"fullName"`
	BusinessEmail    string `json:"businessEmail"`
	OrganizationName string `json:"organizationName"`
	OrganizationCode string `json:"organizationCode"`
}

type Result struct {
	Message           string                 `json:"message"`
	AccountType       Choice                 `json:"accountType"`
	PersonalAccountID *snowflake.ID          `json:"personalAccountId,omitempty"`
	Organization      *orgdomain.Organization `json:"organization,omitempty"`
	JoinRequest       *orgdomain.JoinRequest  `json:"joinRequest,omitempty"`
}

type Status struct {
	OnboardingCompleted bool                    `json:"onboardingCompleted"`
	AccountType         *authdomain.AccountType `json:"accountType"`
	HasPendingRequest   bool                    `json:"hasPendingRequest"`
}

type Service interface {
	Onboard(ctx context.Context, caller *authdomain.Caller, req Request) (*Result, error)
	Status(ctx context.Context, caller *authdomain.Caller) (*Status, error)
}

var (
	ErrInvalidUser        = errors.New("invalid_user")
	ErrInvalidAccountType = errors.New("invalid_account_type")
	ErrInvalidEmail       = errors.New("invalid_business_email")
	ErrAlreadyOnboarded   = errors.New("onboarding_already_completed")
	ErrJoinRequestPending = errors.New("join_request_pending")
)
