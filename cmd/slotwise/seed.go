package main

import (
	"context"
	"time"

	accountdomain "github.com/smallbiznis/slotwise/internal/account/domain"
	platformsettingdomain "github.com/smallbiznis/slotwise/internal/platformsetting/domain"
	"github.com/smallbiznis/slotwise/internal/seed"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create a demo provider, service and client for local development",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				conn     *gorm.DB
				log      *zap.Logger
				accounts accountdomain.Service
				settings platformsettingdomain.Service
			)
			app := fx.New(
				infrastructure(),
				domain(),
				fx.Populate(&conn, &log, &accounts, &settings),
			)
			return startStop(app, time.Minute, func(ctx context.Context) error {
				demo, err := seed.EnsureDemo(ctx, conn, accounts, settings)
				if err != nil {
					return err
				}
				log.Info("demo data ready",
					zap.String("provider_id", demo.Provider.ID.String()),
					zap.String("account_number", demo.Provider.AccountNumber),
					zap.String("service_id", demo.Offering.ID.String()),
					zap.String("customer_id", demo.Customer.ID.String()),
					zap.Float64("fee_percentage", demo.FeePolicy.Percentage),
				)
				return nil
			})
		},
	}
}
