package booking

import (
	"github.com/smallbiznis/slotwise/internal/booking/guard"
	"github.com/smallbiznis/slotwise/internal/booking/service"
	"go.uber.org/fx"
)

var Module = fx.Module("booking.service",
	guard.Module,
	fx.Provide(service.NewService),
)
