package customer

import (
	"github.com/memberline/memberline/internal/customer/repository"
	"github.com/memberline/memberline/internal/customer/service"
	"go.uber.org/fx"
)

var Module = fx.Module("customer.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
