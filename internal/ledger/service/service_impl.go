package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/slotwise/internal/account/domain"
	billingcycledomain "github.com/smallbiznis/slotwise/internal/billingcycle/domain"
	"github.com/smallbiznis/slotwise/internal/clock"
	feedomain "github.com/smallbiznis/slotwise/internal/fee/domain"
	ledgerdomain "github.com/smallbiznis/slotwise/internal/ledger/domain"
	obsmetrics "github.com/smallbiznis/slotwise/internal/observability/metrics"
	platformsettingdomain "github.com/smallbiznis/slotwise/internal/platformsetting/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Repo       ledgerdomain.Repository
	Cycles     billingcycledomain.Repository
	Accounts   accountdomain.Service
	Aggregator feedomain.Aggregator
	Settings   platformsettingdomain.Service
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	repo       ledgerdomain.Repository
	cycles     billingcycledomain.Repository
	accounts   accountdomain.Service
	aggregator feedomain.Aggregator
	settings   platformsettingdomain.Service
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) ledgerdomain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("ledger.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		repo:       p.Repo,
		cycles:     p.Cycles,
		accounts:   p.Accounts,
		aggregator: p.Aggregator,
		settings:   p.Settings,
		obsMetrics: p.ObsMetrics,
	}
}

func (s *Service) Grant(ctx context.Context, providerID snowflake.ID, amount int64, note string) (*ledgerdomain.BillCredit, error) {
	if amount <= 0 {
		return nil, ledgerdomain.ErrInvalidAmount
	}
	if _, err := s.accounts.GetProvider(ctx, providerID); err != nil {
		return nil, err
	}

	entry := ledgerdomain.BillCredit{
		ID:         s.genID.Generate(),
		ProviderID: providerID,
		EntryType:  ledgerdomain.EntryTypeGrant,
		Amount:     amount,
		Note:       strings.TrimSpace(note),
		CreatedAt:  s.clock.Now().UTC(),
	}
	if err := s.repo.Insert(ctx, s.db, &entry); err != nil {
		return nil, err
	}

	s.log.Info("credit granted",
		zap.String("provider_id", providerID.String()),
		zap.Int64("amount", amount),
	)
	return &entry, nil
}

func (s *Service) ApplyForAccount(ctx context.Context, accountNumber string, amount int64) (*ledgerdomain.ApplyResult, error) {
	provider, err := s.accounts.GetProviderByAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, *provider, amount)
}

func (s *Service) ApplyToCurrentCycle(ctx context.Context, providerID snowflake.ID, amount int64) (*ledgerdomain.ApplyResult, error) {
	provider, err := s.accounts.GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, *provider, amount)
}

func (s *Service) apply(ctx context.Context, provider accountdomain.Provider, amount int64) (*ledgerdomain.ApplyResult, error) {
	if amount <= 0 {
		return nil, ledgerdomain.ErrInvalidAmount
	}

	policy, err := s.settings.Policy(ctx)
	if err != nil {
		return nil, err
	}
	now := s.clock.Now()
	month := clock.CycleMonth(now, s.clock.Location())
	totals, err := s.aggregator.TotalsFor(ctx, policy, provider, month)
	if err != nil {
		return nil, err
	}

	result := &ledgerdomain.ApplyResult{Fee: totals.Fee}
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, _, err := s.cycles.Ensure(ctx, tx, &billingcycledomain.BillingCycle{
			ID:            s.genID.Generate(),
			ProviderID:    provider.ID,
			AccountNumber: provider.AccountNumber,
			CycleMonth:    month,
			CreatedAt:     now.UTC(),
			UpdatedAt:     now.UTC(),
		}); err != nil {
			return err
		}
		cycle, err := s.cycles.Find(ctx, tx, provider.AccountNumber, month, true)
		if err != nil {
			return err
		}
		if cycle == nil {
			return billingcycledomain.ErrCycleNotFound
		}

		linked, err := s.repo.SumLinkedApplied(ctx, tx, provider.ID, month)
		if err != nil {
			return err
		}
		headroom := ledgerdomain.ApplyHeadroom(totals.Fee, cycle.CreditsApplied, linked)
		applied := ledgerdomain.AppliedAmount(amount, headroom, totals.Fee)

		if err := s.cycles.AddCreditsApplied(ctx, tx, cycle.ID, applied, now.UTC()); err != nil {
			return err
		}

		cycleMonth := month
		result.Entry = ledgerdomain.BillCredit{
			ID:            s.genID.Generate(),
			ProviderID:    provider.ID,
			EntryType:     ledgerdomain.EntryTypeCycleApply,
			Amount:        amount,
			CycleMonth:    &cycleMonth,
			AppliedAmount: applied,
			CreatedAt:     now.UTC(),
		}
		if err := s.repo.Insert(ctx, tx, &result.Entry); err != nil {
			return err
		}
		result.Applied = applied

		updated, err := s.cycles.Find(ctx, tx, provider.AccountNumber, month, false)
		if err != nil {
			return err
		}
		result.Cycle = *updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordCreditApplied(ctx, result.Applied)
	s.log.Info("credit applied to current cycle",
		zap.String("account_number", provider.AccountNumber),
		zap.String("cycle_month", clock.MonthKey(month)),
		zap.Int64("amount", amount),
		zap.Int64("applied", result.Applied),
		zap.Int64("fee", totals.Fee),
	)
	return result, nil
}

func (s *Service) Balance(ctx context.Context, providerID snowflake.ID) (ledgerdomain.Balance, error) {
	return s.balance(ctx, s.db, providerID)
}

func (s *Service) balance(ctx context.Context, db *gorm.DB, providerID snowflake.ID) (ledgerdomain.Balance, error) {
	if providerID == 0 {
		return ledgerdomain.Balance{}, ledgerdomain.ErrInvalidProvider
	}
	granted, err := s.repo.SumGranted(ctx, db, providerID)
	if err != nil {
		return ledgerdomain.Balance{}, err
	}
	consumed, err := s.cycles.SumCreditsApplied(ctx, db, providerID)
	if err != nil {
		return ledgerdomain.Balance{}, err
	}
	return ledgerdomain.NewBalance(providerID, granted, consumed), nil
}

func (s *Service) Entries(ctx context.Context, providerID snowflake.ID) ([]ledgerdomain.BillCredit, error) {
	return s.repo.List(ctx, s.db, providerID)
}

func (s *Service) CommitAvailable(ctx context.Context, tx *gorm.DB, cycle *billingcycledomain.BillingCycle, fee int64) (int64, error) {
	if cycle == nil {
		return 0, billingcycledomain.ErrCycleNotFound
	}
	remaining := fee - cycle.CreditsApplied
	if remaining <= 0 {
		return 0, nil
	}

	balance, err := s.balance(ctx, tx, cycle.ProviderID)
	if err != nil {
		return 0, err
	}
	commit := balance.Available
	if commit > remaining {
		commit = remaining
	}
	if commit <= 0 {
		return 0, nil
	}

	if err := s.cycles.AddCreditsApplied(ctx, tx, cycle.ID, commit, s.clock.Now().UTC()); err != nil {
		return 0, err
	}
	cycle.CreditsApplied += commit
	s.obsMetrics.RecordCreditApplied(ctx, commit)
	return commit, nil
}
