package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/tally/internal/auth/domain"
	"github.com/smallbiznis/tally/internal/auth/password"
	"github.com/smallbiznis/tally/internal/auth/token"
	"github.com/smallbiznis/tally/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

const minPasswordLength = 8

type Params struct {
	fx.In

	Log    *zap.Logger
	Repo   domain.Repository
	Tokens *token.Issuer
	GenID  *snowflake.Node
}

type Service struct {
	log    *zap.Logger
	repo   domain.Repository
	tokens *token.Issuer
	genID  *snowflake.Node
}

func New(p Params) domain.Service {
	return &Service{
		log:    p.Log.Named("auth.service"),
		repo:   p.Repo,
		tokens: p.Tokens,
		genID:  p.GenID,
	}
}

// Provider exposes the service through the narrower identity interface.
func Provider(svc domain.Service) domain.Provider {
	return svc
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (*domain.LoginResult, error) {
	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return nil, domain.ErrInvalidName
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return nil, domain.ErrInvalidEmail
	}
	if len(strings.TrimSpace(req.Password)) < minPasswordLength {
		return nil, domain.ErrInvalidPassword
	}

	if _, err := s.repo.FindByEmail(ctx, email); err == nil {
		return nil, domain.ErrUserExists
	} else if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, err
	}

	hashed, err := password.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           s.genID.Generate(),
		FullName:     fullName,
		Email:        email,
		PasswordHash: &hashed,
		Claims:       datatypes.NewJSONType(domain.Claims{}),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return nil, domain.ErrUserExists
		}
		return nil, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return s.issue(user)
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	email, err := normalizeEmail(req.Email)
	if err != nil || strings.TrimSpace(req.Password) == "" {
		return nil, domain.ErrInvalidCredentials
	}

	user, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, err
	}
	if user.PasswordHash == nil || !password.Verify(req.Password, *user.PasswordHash) {
		return nil, domain.ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *Service) CurrentCaller(ctx context.Context, raw string) (*domain.Caller, error) {
	userID, err := s.tokens.Parse(raw)
	if err != nil {
		return nil, domain.ErrUnauthenticated
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, err
	}
	return user.Caller(), nil
}

func (s *Service) UpdateClaims(ctx context.Context, userID snowflake.ID, claims domain.Claims) error {
	return s.repo.UpdateClaims(ctx, userID, claims)
}

func (s *Service) issue(user *domain.User) (*domain.LoginResult, error) {
	raw, expiresAt, err := s.tokens.Issue(user.ID)
	if err != nil {
		return nil, err
	}
	return &domain.LoginResult{
		Token:     raw,
		ExpiresAt: expiresAt,
		Caller:    user.Caller(),
	}, nil
}

func normalizeEmail(raw string) (string, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(addr.Address)), nil
}
