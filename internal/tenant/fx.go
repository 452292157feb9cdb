package tenant

import (
	"github.com/memberline/memberline/internal/tenant/repository"
	"github.com/memberline/memberline/internal/tenant/service"
	"go.uber.org/fx"
)

var Module = fx.Module("tenant.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
