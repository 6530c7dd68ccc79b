package fee

import (
	"github.com/smallbiznis/slotwise/internal/fee/service"
	"go.uber.org/fx"
)

var Module = fx.Module("fee.aggregator",
	fx.Provide(service.NewAggregator),
)
