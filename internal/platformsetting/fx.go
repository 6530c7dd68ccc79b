package platformsetting

import (
	"github.com/smallbiznis/slotwise/internal/platformsetting/service"
	"go.uber.org/fx"
)

var Module = fx.Module("platformsetting.service",
	fx.Provide(service.NewService),
)
