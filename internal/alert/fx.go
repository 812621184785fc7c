package alert

import (
	"go.uber.org/fx"

	"github.com/jwwtc/fleet-intelligence/internal/alert/repository"
	"github.com/jwwtc/fleet-intelligence/internal/alert/service"
)

var Module = fx.Module("alert.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
