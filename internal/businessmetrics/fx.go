package businessmetrics

import (
	"github.com/smallbiznis/tally/internal/businessmetrics/repository"
	"github.com/smallbiznis/tally/internal/businessmetrics/service"
	"go.uber.org/fx"
)

var Module = fx.Module("businessmetrics.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
