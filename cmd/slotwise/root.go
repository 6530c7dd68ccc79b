package main

import (
	"github.com/smallbiznis/slotwise/internal/account"
	"github.com/smallbiznis/slotwise/internal/bill"
	"github.com/smallbiznis/slotwise/internal/billingcycle"
	"github.com/smallbiznis/slotwise/internal/billingoverview"
	"github.com/smallbiznis/slotwise/internal/booking"
	"github.com/smallbiznis/slotwise/internal/clock"
	"github.com/smallbiznis/slotwise/internal/config"
	"github.com/smallbiznis/slotwise/internal/fee"
	"github.com/smallbiznis/slotwise/internal/ledger"
	"github.com/smallbiznis/slotwise/internal/migration"
	"github.com/smallbiznis/slotwise/internal/notification"
	"github.com/smallbiznis/slotwise/internal/observability"
	"github.com/smallbiznis/slotwise/internal/platformsetting"
	"github.com/smallbiznis/slotwise/internal/suspension"
	"github.com/smallbiznis/slotwise/pkg/db"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slotwise",
		Short: "Service marketplace bookings and platform-fee billing.",
		Long: `slotwise runs the booking lifecycle for a service marketplace and bills
providers a monthly platform fee on completed bookings.`,
		SilenceUsage: true,
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newSchedulerCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newRunJobCommand())
	cmd.AddCommand(newSeedCommand())
	return cmd
}

// infrastructure is shared by every command: config, logging, tracing,
// metrics and the database.
func infrastructure() fx.Option {
	return fx.Options(
		config.Module,
		observability.Module,
		db.Module,
		clock.Module,
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
	)
}

// domain wires the booking and billing services on top of infrastructure.
func domain() fx.Option {
	return fx.Options(
		migration.Module,
		notification.Module,
		account.Module,
		platformsetting.Module,
		billingcycle.Module,
		fee.Module,
		ledger.Module,
		bill.Module,
		booking.Module,
		suspension.Module,
		billingoverview.Module,
	)
}
