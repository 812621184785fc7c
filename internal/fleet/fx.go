package fleet

import (
	"go.uber.org/fx"

	"github.com/jwwtc/fleet-intelligence/internal/fleet/repository"
	"github.com/jwwtc/fleet-intelligence/internal/fleet/service"
)

var Module = fx.Module("fleet.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
