package suspension

import (
	"github.com/smallbiznis/slotwise/internal/suspension/service"
	"go.uber.org/fx"
)

var Module = fx.Module("suspension.service",
	fx.Provide(service.NewService),
)
