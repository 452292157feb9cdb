package notification

import (
	"github.com/memberline/memberline/internal/notification/repository"
	"github.com/memberline/memberline/internal/notification/service"
	"go.uber.org/fx"
)

var Module = fx.Module("notification.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
