package subscription

import (
	"github.com/memberline/memberline/internal/subscription/repository"
	"github.com/memberline/memberline/internal/subscription/service"
	"go.uber.org/fx"
)

var Module = fx.Module("subscription.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
