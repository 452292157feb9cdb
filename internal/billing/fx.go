package billing

import (
	"github.com/memberline/memberline/internal/billing/repository"
	"github.com/memberline/memberline/internal/billing/service"
	"go.uber.org/fx"
)

var Module = fx.Module("billing.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
