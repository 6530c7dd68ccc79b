// Package testkit wires the booking and billing services over an in-memory
// SQLite database and a fake clock for package tests.
package testkit

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	accountdomain "github.com/smallbiznis/slotwise/internal/account/domain"
	accountservice "github.com/smallbiznis/slotwise/internal/account/service"
	billdomain "github.com/smallbiznis/slotwise/internal/bill/domain"
	billrepository "github.com/smallbiznis/slotwise/internal/bill/repository"
	billservice "github.com/smallbiznis/slotwise/internal/bill/service"
	billingcycledomain "github.com/smallbiznis/slotwise/internal/billingcycle/domain"
	billingcyclerepository "github.com/smallbiznis/slotwise/internal/billingcycle/repository"
	billingcycleservice "github.com/smallbiznis/slotwise/internal/billingcycle/service"
	billingoverviewdomain "github.com/smallbiznis/slotwise/internal/billingoverview/domain"
	billingoverviewservice "github.com/smallbiznis/slotwise/internal/billingoverview/service"
	bookingdomain "github.com/smallbiznis/slotwise/internal/booking/domain"
	"github.com/smallbiznis/slotwise/internal/booking/guard"
	bookingservice "github.com/smallbiznis/slotwise/internal/booking/service"
	"github.com/smallbiznis/slotwise/internal/clock"
	"github.com/smallbiznis/slotwise/internal/config"
	feedomain "github.com/smallbiznis/slotwise/internal/fee/domain"
	feeservice "github.com/smallbiznis/slotwise/internal/fee/service"
	ledgerdomain "github.com/smallbiznis/slotwise/internal/ledger/domain"
	ledgerrepository "github.com/smallbiznis/slotwise/internal/ledger/repository"
	ledgerservice "github.com/smallbiznis/slotwise/internal/ledger/service"
	"github.com/smallbiznis/slotwise/internal/migration"
	"github.com/smallbiznis/slotwise/internal/notification/notificationtest"
	platformsettingdomain "github.com/smallbiznis/slotwise/internal/platformsetting/domain"
	platformsettingservice "github.com/smallbiznis/slotwise/internal/platformsetting/service"
	suspensiondomain "github.com/smallbiznis/slotwise/internal/suspension/domain"
	suspensionservice "github.com/smallbiznis/slotwise/internal/suspension/service"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Harness holds one fully wired set of services sharing a database,
// clock and notification recorder.
type Harness struct {
	DB       *gorm.DB
	Log      *zap.Logger
	Clock    *clock.FakeClock
	GenID    *snowflake.Node
	Policy   config.BillingPolicy
	Notifier *notificationtest.Recorder
	Locker   guard.Locker

	Accounts   accountdomain.Service
	Settings   platformsettingdomain.Service
	CycleRepo  billingcycledomain.Repository
	Cycles     billingcycledomain.Service
	BillRepo   billdomain.Repository
	Bills      billdomain.Service
	LedgerRepo ledgerdomain.Repository
	Ledger     ledgerdomain.Service
	Aggregator feedomain.Aggregator
	Bookings   bookingdomain.Service
	Suspension suspensiondomain.Service
	Overview   billingoverviewdomain.Service
}

// OpenDB returns a migrated in-memory database private to the test.
func OpenDB(t testing.TB) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=busy_timeout(5000)", name, time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Silent),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := migration.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// New wires every service with the clock set to now.
func New(t testing.TB, now time.Time) *Harness {
	t.Helper()
	policy := config.DefaultBillingPolicy()
	loc := clock.FixedZone(policy.TimezoneName, policy.UTCOffset)

	genID, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}

	h := &Harness{
		DB:       OpenDB(t),
		Log:      zap.NewNop(),
		Clock:    clock.NewFakeClock(now, loc),
		GenID:    genID,
		Policy:   policy,
		Notifier: notificationtest.NewRecorder(),
		Locker:   guard.NewInProcess(),

		CycleRepo:  billingcyclerepository.Provide(),
		BillRepo:   billrepository.Provide(),
		LedgerRepo: ledgerrepository.Provide(),
	}

	h.Accounts = accountservice.NewService(accountservice.Params{
		DB: h.DB, Log: h.Log, GenID: h.GenID, Clock: h.Clock,
	})
	h.Settings = platformsettingservice.NewService(platformsettingservice.Params{
		DB: h.DB, Log: h.Log, Clock: h.Clock, Policy: policy,
	})
	h.Cycles = billingcycleservice.NewService(billingcycleservice.ServiceParam{
		DB: h.DB, Log: h.Log, GenID: h.GenID, Clock: h.Clock,
		Repo: h.CycleRepo, Accounts: h.Accounts, Notifier: h.Notifier,
	})
	h.Aggregator = feeservice.NewAggregator(feeservice.Params{
		DB: h.DB, Log: h.Log, Clock: h.Clock,
		Bills: h.BillRepo, Cycles: h.CycleRepo, LedgerRepo: h.LedgerRepo,
	})
	h.Ledger = ledgerservice.NewService(ledgerservice.Params{
		DB: h.DB, Log: h.Log, GenID: h.GenID, Clock: h.Clock,
		Repo: h.LedgerRepo, Cycles: h.CycleRepo, Accounts: h.Accounts,
		Aggregator: h.Aggregator, Settings: h.Settings,
	})
	h.Bills = billservice.NewService(billservice.Params{
		DB: h.DB, Log: h.Log, GenID: h.GenID, Clock: h.Clock, Policy: policy,
		Repo: h.BillRepo, Cycles: h.CycleRepo, Accounts: h.Accounts,
		Aggregator: h.Aggregator, Settings: h.Settings, Ledger: h.Ledger,
		Notifier: h.Notifier,
	})
	h.Bookings = bookingservice.NewService(bookingservice.Params{
		DB: h.DB, Log: h.Log, GenID: h.GenID, Clock: h.Clock, Policy: policy,
		Accounts: h.Accounts, Cycles: h.Cycles, Bills: h.Bills,
		Guard: h.Locker, Notifier: h.Notifier,
	})
	h.Suspension = suspensionservice.NewService(suspensionservice.Params{
		DB: h.DB, Log: h.Log, Clock: h.Clock, Policy: policy,
		Cycles: h.CycleRepo, Accounts: h.Accounts, Notifier: h.Notifier,
	})
	h.Overview = billingoverviewservice.NewService(billingoverviewservice.Params{
		DB: h.DB, Log: h.Log, Clock: h.Clock,
		Accounts: h.Accounts, Settings: h.Settings, Aggregator: h.Aggregator,
		Bills: h.BillRepo, Cycles: h.CycleRepo,
	})
	return h
}

// Local builds a wall-clock time in the business location.
func (h *Harness) Local(year int, month time.Month, day, hour, minute int) time.Time {
	return time.Date(year, month, day, hour, minute, 0, 0, h.Clock.Location())
}

// Provider is a seeded provider user with one active offering.
type Provider struct {
	User     accountdomain.User
	Provider accountdomain.Provider
	Offering accountdomain.Offering
}

func (h *Harness) SeedProvider(t testing.TB, email string, price int64, durationMinutes int) Provider {
	t.Helper()
	ctx := context.Background()
	user, err := h.Accounts.RegisterUser(ctx, accountdomain.RegisterUserRequest{
		Email:    email,
		FullName: "Provider " + email,
		Role:     accountdomain.RoleProvider,
	})
	if err != nil {
		t.Fatalf("register provider user: %v", err)
	}
	provider, err := h.Accounts.RegisterProvider(ctx, user.ID)
	if err != nil {
		t.Fatalf("register provider: %v", err)
	}
	offering, err := h.Accounts.CreateOffering(ctx, accountdomain.CreateOfferingRequest{
		ProviderID:      provider.ID,
		Name:            "Haircut",
		Price:           price,
		DurationMinutes: durationMinutes,
	})
	if err != nil {
		t.Fatalf("create offering: %v", err)
	}
	return Provider{User: *user, Provider: *provider, Offering: *offering}
}

func (h *Harness) SeedCustomer(t testing.TB, email string) accountdomain.User {
	t.Helper()
	user, err := h.Accounts.RegisterUser(context.Background(), accountdomain.RegisterUserRequest{
		Email:    email,
		FullName: "Customer " + email,
		Role:     accountdomain.RoleClient,
	})
	if err != nil {
		t.Fatalf("register customer: %v", err)
	}
	return *user
}

// InsertBooking writes a booking row directly, bypassing the future-start
// check so tests can place history in past months.
func (h *Harness) InsertBooking(t testing.TB, customerID, serviceID snowflake.ID, start time.Time, duration time.Duration, status bookingdomain.Status) bookingdomain.Booking {
	t.Helper()
	now := h.Clock.Now().UTC()
	booking := bookingdomain.Booking{
		ID:         h.GenID.Generate(),
		CustomerID: customerID,
		ServiceID:  serviceID,
		StartTime:  start.UTC(),
		EndTime:    start.Add(duration).UTC(),
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if status == bookingdomain.StatusCompleted {
		completedAt := booking.EndTime
		booking.CompletedAt = &completedAt
	}
	if err := h.DB.Create(&booking).Error; err != nil {
		t.Fatalf("insert booking: %v", err)
	}
	return booking
}
