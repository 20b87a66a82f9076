package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Provider is the identity collaborator consumed by the rest of the system.
type Provider interface {
	// CurrentCaller resolves a session token. A missing, malformed or expired
	// token yields ErrUnauthenticated.
	CurrentCaller(ctx context.Context, token string) (*Caller, error)
	UpdateClaims(ctx context.Context, userID snowflake.ID, claims Claims) error
}

type Service interface {
	Provider

	Register(ctx context.Context, req RegisterRequest) (*LoginResult, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
}

type RegisterRequest struct {
	FullName string
	Email    string
	Password string
}

type LoginRequest struct {
	Email    string
	Password string
}

type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	Caller    *Caller
}
