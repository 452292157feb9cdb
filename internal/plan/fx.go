package plan

import (
	"github.com/memberline/memberline/internal/plan/repository"
	"github.com/memberline/memberline/internal/plan/service"
	"go.uber.org/fx"
)

var Module = fx.Module("plan.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
