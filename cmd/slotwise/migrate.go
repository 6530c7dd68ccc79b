package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/smallbiznis/slotwise/internal/migration"
	"github.com/smallbiznis/slotwise/internal/scheduler"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newMigrateCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		RunE: func(cmd *cobra.Command, args []string) error {
			app := fx.New(infrastructure(), migration.Module)
			return startStop(app, timeout, nil)
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "migration deadline")
	return cmd
}

func newRunJobCommand() *cobra.Command {
	var timeout time.Duration

	cmd := &cobra.Command{
		Use:       "run-job <name>",
		Short:     "Run one scheduler job now and exit",
		Long:      "Jobs: " + strings.Join(scheduler.Jobs(), ", "),
		Args:      cobra.ExactArgs(1),
		ValidArgs: scheduler.Jobs(),
		RunE: func(cmd *cobra.Command, args []string) error {
			var sched *scheduler.Scheduler
			app := fx.New(
				infrastructure(),
				domain(),
				scheduler.Module,
				fx.Populate(&sched),
			)
			return startStop(app, timeout, func(ctx context.Context) error {
				return sched.RunJob(ctx, args[0])
			})
		},
	}

	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "overall deadline")
	return cmd
}

// startStop runs the app lifecycle once around fn.
func startStop(app *fx.App, timeout time.Duration, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		return fmt.Errorf("start: %w", err)
	}

	var runErr error
	if fn != nil {
		runErr = fn(ctx)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil && runErr == nil {
		runErr = fmt.Errorf("stop: %w", err)
	}
	return runErr
}
