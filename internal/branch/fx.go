package branch

import (
	"github.com/memberline/memberline/internal/branch/repository"
	"github.com/memberline/memberline/internal/branch/service"
	"go.uber.org/fx"
)

var Module = fx.Module("branch.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
