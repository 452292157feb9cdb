package access

import (
	"github.com/memberline/memberline/internal/access/pending"
	"github.com/memberline/memberline/internal/access/repository"
	"github.com/memberline/memberline/internal/access/service"
	"go.uber.org/fx"
)

var Module = fx.Module("access.service",
	fx.Provide(repository.Provide),
	fx.Provide(pending.New),
	fx.Provide(service.New),
)
