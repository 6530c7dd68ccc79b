package scheduler

import (
	"context"

	"go.uber.org/fx"
)

// Module provides the scheduler without starting it.
var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(New),
)

// RunModule starts the cron ticker with the application lifecycle.
var RunModule = fx.Module("scheduler.run",
	fx.Invoke(registerLifecycle),
)

func registerLifecycle(lc fx.Lifecycle, sched *Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			return sched.Start()
		},
		OnStop: func(ctx context.Context) error {
			return sched.Stop(ctx)
		},
	})
}
