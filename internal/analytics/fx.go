package analytics

import (
	"go.uber.org/fx"

	"github.com/jwwtc/fleet-intelligence/internal/analytics/repository"
	"github.com/jwwtc/fleet-intelligence/internal/analytics/service"
)

var Module = fx.Module("analytics.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
