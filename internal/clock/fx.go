package clock

import (
	"github.com/smallbiznis/slotwise/internal/config"
	"go.uber.org/fx"
)

var Module = fx.Module("clock",
	fx.Provide(ProvideClock),
)

func ProvideClock(policy config.BillingPolicy) Clock {
	return NewSystemClock(FixedZone(policy.TimezoneName, policy.UTCOffset))
}
