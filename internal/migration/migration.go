package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	accountdomain "github.com/smallbiznis/slotwise/internal/account/domain"
	billdomain "github.com/smallbiznis/slotwise/internal/bill/domain"
	billingcycledomain "github.com/smallbiznis/slotwise/internal/billingcycle/domain"
	bookingdomain "github.com/smallbiznis/slotwise/internal/booking/domain"
	ledgerdomain "github.com/smallbiznis/slotwise/internal/ledger/domain"
	platformsettingdomain "github.com/smallbiznis/slotwise/internal/platformsetting/domain"
	"gorm.io/gorm"
)

// Models lists every persisted type in dependency order.
func Models() []any {
	return []any{
		&accountdomain.User{},
		&accountdomain.Provider{},
		&accountdomain.Offering{},
		&bookingdomain.Booking{},
		&platformsettingdomain.PlatformSetting{},
		&billingcycledomain.BillingCycle{},
		&billdomain.Bill{},
		&ledgerdomain.BillCredit{},
	}
}

// Run applies the versioned SQL migrations on postgres and falls back to
// gorm AutoMigrate for the other dialects.
func Run(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if db.Dialector.Name() != "postgres" {
		return AutoMigrate(db)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

// RunMigrations applies the embedded postgres migrations.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
