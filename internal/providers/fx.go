package providers

import (
	"github.com/memberline/memberline/internal/providers/email"
	"go.uber.org/fx"
)

var Module = fx.Module("providers",
	email.Module,
)
