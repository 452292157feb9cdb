package staff

import (
	"github.com/memberline/memberline/internal/staff/repository"
	"github.com/memberline/memberline/internal/staff/service"
	"go.uber.org/fx"
)

var Module = fx.Module("staff.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
