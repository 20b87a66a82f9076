package organization

import (
	"github.com/smallbiznis/tally/internal/organization/domain"
	"github.com/smallbiznis/tally/internal/organization/repository"
	"github.com/smallbiznis/tally/internal/organization/service"
	"github.com/smallbiznis/tally/internal/permission"
	"go.uber.org/fx"
)

var Module = fx.Module("organization.service",
	fx.Provide(repository.NewRepository),
	fx.Provide(service.NewService),
	fx.Provide(func(svc domain.Service) permission.MemberStore { return svc }),
)
