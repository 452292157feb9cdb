package apikey

import (
	"github.com/memberline/memberline/internal/apikey/repository"
	"github.com/memberline/memberline/internal/apikey/service"
	"go.uber.org/fx"
)

var Module = fx.Module("apikey.service",
	fx.Provide(repository.Provide),
	fx.Provide(service.New),
)
