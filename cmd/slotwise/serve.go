package main

import (
	"github.com/smallbiznis/slotwise/internal/scheduler"
	"github.com/smallbiznis/slotwise/internal/server"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
)

func newServeCommand() *cobra.Command {
	var withScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := []fx.Option{infrastructure(), domain(), server.Module}
			if withScheduler {
				opts = append(opts, scheduler.Module, scheduler.RunModule)
			}
			fx.New(opts...).Run()
			return nil
		},
	}

	cmd.Flags().BoolVar(&withScheduler, "with-scheduler", false, "also run the periodic jobs in this process")
	return cmd
}

func newSchedulerCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "scheduler",
		Short: "Run the periodic jobs (reminders, auto-complete, bills, cycles, suspension)",
		RunE: func(cmd *cobra.Command, args []string) error {
			fx.New(
				infrastructure(),
				domain(),
				scheduler.Module,
				scheduler.RunModule,
			).Run()
			return nil
		},
	}
}
