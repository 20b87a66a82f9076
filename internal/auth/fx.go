package auth

import (
	"github.com/smallbiznis/tally/internal/auth/repository"
	"github.com/smallbiznis/tally/internal/auth/service"
	"github.com/smallbiznis/tally/internal/auth/session"
	"github.com/smallbiznis/tally/internal/auth/token"
	"go.uber.org/fx"
)

var Module = fx.Module("auth.service",
	fx.Provide(repository.New),
	fx.Provide(token.NewIssuer),
	fx.Provide(service.New),
	fx.Provide(service.Provider),
	fx.Provide(session.NewManager),
)
