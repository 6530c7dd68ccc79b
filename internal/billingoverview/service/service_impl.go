package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	accountdomain "github.com/smallbiznis/slotwise/internal/account/domain"
	billdomain "github.com/smallbiznis/slotwise/internal/bill/domain"
	billingcycledomain "github.com/smallbiznis/slotwise/internal/billingcycle/domain"
	billingoverview "github.com/smallbiznis/slotwise/internal/billingoverview/domain"
	"github.com/smallbiznis/slotwise/internal/clock"
	feedomain "github.com/smallbiznis/slotwise/internal/fee/domain"
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
	Accounts   accountdomain.Service
	Settings   platformsettingdomain.Service
	Aggregator feedomain.Aggregator
	Bills      billdomain.Repository
	Cycles     billingcycledomain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	clock clock.Clock

	accounts   accountdomain.Service
	settings   platformsettingdomain.Service
	aggregator feedomain.Aggregator
	bills      billdomain.Repository
	cycles     billingcycledomain.Repository
}

func NewService(p Params) billingoverview.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("billingoverview.service"),
		clock: p.Clock,

		accounts:   p.Accounts,
		settings:   p.Settings,
		aggregator: p.Aggregator,
		bills:      p.Bills,
		cycles:     p.Cycles,
	}
}

// ListBillingRows is read-only: cycles that do not exist yet are reported as
// unpaid without being created.
func (s *Service) ListBillingRows(ctx context.Context, month time.Time) ([]billingoverview.BillingRow, error) {
	month = clock.NormalizeMonth(month)
	policy, err := s.settings.Policy(ctx)
	if err != nil {
		return nil, err
	}
	providers, err := s.accounts.ListProviders(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]billingoverview.BillingRow, 0, len(providers))
	for _, provider := range providers {
		row, err := s.row(ctx, policy, provider, month)
		if err != nil {
			return nil, fmt.Errorf("billing row %s: %w", provider.AccountNumber, err)
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		return rows[i].AccountNumber < rows[j].AccountNumber
	})
	return rows, nil
}

func (s *Service) row(ctx context.Context, policy platformsettingdomain.FeePolicy, provider accountdomain.Provider, month time.Time) (billingoverview.BillingRow, error) {
	user, err := s.accounts.GetUser(ctx, provider.UserID)
	if err != nil {
		return billingoverview.BillingRow{}, err
	}
	breakdown, err := s.aggregator.Compute(ctx, policy, provider, month)
	if err != nil {
		return billingoverview.BillingRow{}, err
	}

	row := billingoverview.BillingRow{
		ProviderID:    provider.ID,
		AccountNumber: provider.AccountNumber,
		ProviderName:  user.FullName,
		ProviderEmail: user.Email,
		IsLocked:      provider.IsLocked,
		IsSuspended:   user.IsSuspended,

		Month:          month,
		Strategy:       breakdown.Strategy,
		Total:          breakdown.Total,
		FeePercentage:  breakdown.FeePercentage,
		Fee:            breakdown.Fee,
		CreditsApplied: breakdown.CreditsApplied,
		CreditPending:  breakdown.CreditPending,
		AmountDue:      breakdown.AmountDue,
	}

	cycle, err := s.cycles.Find(ctx, s.db, provider.AccountNumber, month, false)
	if err != nil {
		return billingoverview.BillingRow{}, err
	}
	if cycle != nil {
		row.IsPaid = cycle.IsPaid
		row.PaidAt = cycle.PaidAt
	}

	bill, err := s.bills.Find(ctx, s.db, provider.ID, month)
	if err != nil {
		return billingoverview.BillingRow{}, err
	}
	if bill != nil {
		id := bill.ID
		due := bill.DueDate
		row.BillID = &id
		row.DueDate = &due
	}
	return row, nil
}
