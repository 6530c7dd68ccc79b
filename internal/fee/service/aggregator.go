package service

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/slotwise/internal/account/domain"
	billdomain "github.com/smallbiznis/slotwise/internal/bill/domain"
	billingcycledomain "github.com/smallbiznis/slotwise/internal/billingcycle/domain"
	bookingdomain "github.com/smallbiznis/slotwise/internal/booking/domain"
	"github.com/smallbiznis/slotwise/internal/clock"
	"github.com/smallbiznis/slotwise/internal/fee/domain"
	ledgerdomain "github.com/smallbiznis/slotwise/internal/ledger/domain"
	platformsettingdomain "github.com/smallbiznis/slotwise/internal/platformsetting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	Clock      clock.Clock
	Bills      billdomain.Repository
	Cycles     billingcycledomain.Repository
	LedgerRepo ledgerdomain.Repository
}

type Aggregator struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	bills  billdomain.Repository
	cycles billingcycledomain.Repository
	ledger ledgerdomain.Repository
}

func NewAggregator(p Params) domain.Aggregator {
	return &Aggregator{
		db:    p.DB,
		log:   p.Log.Named("fee.aggregator"),
		clock: p.Clock,

		bills:  p.Bills,
		cycles: p.Cycles,
		ledger: p.LedgerRepo,
	}
}

func (a *Aggregator) Compute(ctx context.Context, policy platformsettingdomain.FeePolicy, provider accountdomain.Provider, month time.Time) (domain.Breakdown, error) {
	month = clock.NormalizeMonth(month)
	now := a.clock.Now()
	currentMonth := clock.CycleMonth(now, a.clock.Location())

	bill, err := a.bills.Find(ctx, a.db, provider.ID, month)
	if err != nil {
		return domain.Breakdown{}, err
	}
	cycle, err := a.cycles.Find(ctx, a.db, provider.AccountNumber, month, false)
	if err != nil {
		return domain.Breakdown{}, err
	}
	var creditsApplied int64
	if cycle != nil {
		creditsApplied = cycle.CreditsApplied
	}

	strategy := domain.StrategyFor(month, currentMonth, bill)
	in := domain.Inputs{
		Month:          month,
		Policy:         policy,
		Bill:           bill,
		CreditsApplied: creditsApplied,
	}

	if strategy == domain.StrategyLive {
		totals, err := a.TotalsFor(ctx, policy, provider, month)
		if err != nil {
			return domain.Breakdown{}, err
		}
		in.Total = totals.Total
		in.Cutoff = totals.Cutoff

		granted, err := a.ledger.SumGranted(ctx, a.db, provider.ID)
		if err != nil {
			return domain.Breakdown{}, err
		}
		consumed, err := a.cycles.SumCreditsApplied(ctx, a.db, provider.ID)
		if err != nil {
			return domain.Breakdown{}, err
		}
		in.CreditAvailable = ledgerdomain.NewBalance(provider.ID, granted, consumed).Available
	} else {
		_, in.Cutoff = clock.MonthBounds(month, a.clock.Location())
	}

	return strategy.Compute(in), nil
}

func (a *Aggregator) TotalsFor(ctx context.Context, policy platformsettingdomain.FeePolicy, provider accountdomain.Provider, month time.Time) (domain.Totals, error) {
	month = clock.NormalizeMonth(month)
	start, cutoff := a.window(month)

	var total int64
	err := a.billable(ctx, provider.ID, start, cutoff).
		Select("COALESCE(SUM(services.price), 0)").
		Scan(&total).Error
	if err != nil {
		return domain.Totals{}, err
	}

	return domain.Totals{
		Month:  month,
		Cutoff: cutoff,
		Total:  total,
		Fee:    policy.Fee(total),
	}, nil
}

func (a *Aggregator) BillableBookings(ctx context.Context, provider accountdomain.Provider, month time.Time) ([]bookingdomain.Booking, error) {
	start, cutoff := a.window(clock.NormalizeMonth(month))

	var bookings []bookingdomain.Booking
	err := a.billable(ctx, provider.ID, start, cutoff).
		Select("bookings.*").
		Order("bookings.end_time").
		Find(&bookings).Error
	return bookings, err
}

func (a *Aggregator) AwaitingCompletion(ctx context.Context, provider accountdomain.Provider, month time.Time) (int64, error) {
	start, cutoff := a.window(clock.NormalizeMonth(month))

	var count int64
	err := a.db.WithContext(ctx).
		Model(&bookingdomain.Booking{}).
		Joins("JOIN services ON services.id = bookings.service_id").
		Where("services.provider_id = ?", provider.ID).
		Where("bookings.status = ?", bookingdomain.StatusConfirmed).
		Where("bookings.end_time >= ? AND bookings.end_time < ?", start, cutoff).
		Count(&count).Error
	return count, err
}

// window returns [month start, min(month end, now)) in UTC.
func (a *Aggregator) window(month time.Time) (time.Time, time.Time) {
	start, end := clock.MonthBounds(month, a.clock.Location())
	cutoff := end
	if now := a.clock.Now(); now.Before(cutoff) {
		cutoff = now
	}
	return start.UTC(), cutoff.UTC()
}

func (a *Aggregator) billable(ctx context.Context, providerID snowflake.ID, start, cutoff time.Time) *gorm.DB {
	return a.db.WithContext(ctx).
		Model(&bookingdomain.Booking{}).
		Joins("JOIN services ON services.id = bookings.service_id").
		Where("services.provider_id = ?", providerID).
		Where("bookings.status = ? AND bookings.cancelled_at IS NULL", bookingdomain.StatusCompleted).
		Where("bookings.end_time >= ? AND bookings.end_time < ?", start, cutoff)
}
