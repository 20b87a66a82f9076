package onboarding

import (
	"github.com/smallbiznis/tally/internal/onboarding/repository"
	"github.com/smallbiznis/tally/internal/onboarding/service"
	"go.uber.org/fx"
)

var Module = fx.Module("onboarding.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
