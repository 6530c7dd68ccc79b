package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/slotwise/internal/account/domain"
	"github.com/smallbiznis/slotwise/internal/bill/domain"
	billingcycledomain "github.com/smallbiznis/slotwise/internal/billingcycle/domain"
	"github.com/smallbiznis/slotwise/internal/clock"
	"github.com/smallbiznis/slotwise/internal/config"
	feedomain "github.com/smallbiznis/slotwise/internal/fee/domain"
	ledgerdomain "github.com/smallbiznis/slotwise/internal/ledger/domain"
	notificationdomain "github.com/smallbiznis/slotwise/internal/notification/domain"
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
	Policy     config.BillingPolicy
	Repo       domain.Repository
	Cycles     billingcycledomain.Repository
	Accounts   accountdomain.Service
	Aggregator feedomain.Aggregator
	Settings   platformsettingdomain.Service
	Ledger     ledgerdomain.Service
	Notifier   notificationdomain.Dispatcher
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	dueDay int

	repo       domain.Repository
	cycles     billingcycledomain.Repository
	accounts   accountdomain.Service
	aggregator feedomain.Aggregator
	settings   platformsettingdomain.Service
	ledger     ledgerdomain.Service
	notifier   notificationdomain.Dispatcher
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("bill.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		dueDay: p.Policy.BillDueDay,

		repo:       p.Repo,
		cycles:     p.Cycles,
		accounts:   p.Accounts,
		aggregator: p.Aggregator,
		settings:   p.Settings,
		ledger:     p.Ledger,
		notifier:   p.Notifier,
		obsMetrics: p.ObsMetrics,
	}
}

type outcome int

const (
	outcomeSkipped outcome = iota
	outcomeExisting
	outcomeCreated
	// a booking that ended in the month still awaits completion
	outcomeDeferred
)

func (s *Service) GenerateForMonth(ctx context.Context, month time.Time) (domain.GenerateResult, error) {
	month = clock.NormalizeMonth(month)
	result := domain.GenerateResult{Month: month}

	policy, err := s.settings.Policy(ctx)
	if err != nil {
		return result, err
	}
	providers, err := s.accounts.ListProviders(ctx)
	if err != nil {
		return result, err
	}

	var errs []error
	for _, provider := range providers {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		out, err := s.generate(ctx, policy, provider, month)
		if err != nil {
			s.log.Warn("generate bill failed",
				zap.String("provider_id", provider.ID.String()),
				zap.String("month", clock.MonthKey(month)),
				zap.Error(err),
			)
			errs = append(errs, fmt.Errorf("provider %s: %w", provider.ID, err))
			continue
		}
		switch out {
		case outcomeCreated:
			result.Created++
		case outcomeExisting:
			result.Existing++
		case outcomeDeferred:
			result.Deferred++
		default:
			result.Skipped++
		}
	}

	emailed, err := s.sendPendingStatements(ctx, policy, month)
	result.Emailed = emailed
	if err != nil {
		errs = append(errs, err)
	}

	s.log.Info("bills generated",
		zap.String("month", clock.MonthKey(month)),
		zap.Int("created", result.Created),
		zap.Int("existing", result.Existing),
		zap.Int("skipped", result.Skipped),
		zap.Int("deferred", result.Deferred),
		zap.Int("emailed", result.Emailed),
	)
	return result, errors.Join(errs...)
}

func (s *Service) RefreshForBooking(ctx context.Context, providerID snowflake.ID, month time.Time) error {
	month = clock.NormalizeMonth(month)
	currentMonth := clock.CycleMonth(s.clock.Now(), s.clock.Location())
	if !month.Before(currentMonth) {
		return nil
	}

	provider, err := s.accounts.GetProvider(ctx, providerID)
	if err != nil {
		return err
	}
	policy, err := s.settings.Policy(ctx)
	if err != nil {
		return err
	}
	out, err := s.generate(ctx, policy, *provider, month)
	if err != nil {
		return err
	}
	if out != outcomeCreated {
		return nil
	}

	bill, err := s.repo.Find(ctx, s.db, provider.ID, month)
	if err != nil || bill == nil {
		return err
	}
	if err := s.sendStatement(ctx, policy, *bill); err != nil {
		s.log.Warn("bill statement not sent, will retry", zap.String("bill_id", bill.ID.String()), zap.Error(err))
	}
	return nil
}

// generate freezes the provider's bill for month unless one exists or the
// month had no billable activity. Available credit is committed to the
// cycle in the same transaction as the bill insert.
func (s *Service) generate(ctx context.Context, policy platformsettingdomain.FeePolicy, provider accountdomain.Provider, month time.Time) (outcome, error) {
	existing, err := s.repo.Find(ctx, s.db, provider.ID, month)
	if err != nil {
		return outcomeSkipped, err
	}
	if existing != nil {
		return outcomeExisting, nil
	}

	// Bills are write-once, so freezing before the completion sweep would
	// drop those bookings for good. The next tick retries.
	awaiting, err := s.aggregator.AwaitingCompletion(ctx, provider, month)
	if err != nil {
		return outcomeSkipped, err
	}
	if awaiting > 0 {
		s.log.Info("bill deferred, bookings awaiting completion",
			zap.String("provider_id", provider.ID.String()),
			zap.String("month", clock.MonthKey(month)),
			zap.Int64("awaiting", awaiting),
		)
		return outcomeDeferred, nil
	}

	totals, err := s.aggregator.TotalsFor(ctx, policy, provider, month)
	if err != nil {
		return outcomeSkipped, err
	}
	if totals.Total <= 0 {
		return outcomeSkipped, nil
	}

	now := s.clock.Now().UTC()
	bill := domain.Bill{
		ID:            s.genID.Generate(),
		ProviderID:    provider.ID,
		Month:         month,
		TotalAmount:   totals.Total,
		FeeAmount:     totals.Fee,
		FeePercentage: policy.Percentage,
		DueDate:       domain.DueDate(month, s.dueDay, s.clock.Location()),
		IsPaid:        false,
		CreatedAt:     now,
	}

	created := false
	var committed int64
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		created, err = s.repo.InsertIfAbsent(ctx, tx, &bill)
		if err != nil || !created {
			return err
		}

		if _, _, err := s.cycles.Ensure(ctx, tx, &billingcycledomain.BillingCycle{
			ID:            s.genID.Generate(),
			ProviderID:    provider.ID,
			AccountNumber: provider.AccountNumber,
			CycleMonth:    month,
			CreatedAt:     now,
			UpdatedAt:     now,
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
		// A cycle paid before its bill existed carries the paid flag over.
		if cycle.IsPaid {
			if err := tx.WithContext(ctx).
				Model(&domain.Bill{}).
				Where("id = ?", bill.ID).
				Updates(map[string]any{"is_paid": true, "paid_at": cycle.PaidAt}).Error; err != nil {
				return err
			}
		}
		committed, err = s.ledger.CommitAvailable(ctx, tx, cycle, bill.FeeAmount)
		return err
	})
	if err != nil {
		return outcomeSkipped, err
	}
	if !created {
		return outcomeExisting, nil
	}

	s.obsMetrics.RecordBillGenerated(ctx)
	s.log.Info("bill created",
		zap.String("bill_id", bill.ID.String()),
		zap.String("provider_id", provider.ID.String()),
		zap.String("month", clock.MonthKey(month)),
		zap.Int64("total", bill.TotalAmount),
		zap.Int64("fee", bill.FeeAmount),
		zap.Int64("credit_committed", committed),
	)
	return outcomeCreated, nil
}

func (s *Service) sendPendingStatements(ctx context.Context, policy platformsettingdomain.FeePolicy, month time.Time) (int, error) {
	bills, err := s.repo.ListUnsent(ctx, s.db, month)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, bill := range bills {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		if err := s.sendStatement(ctx, policy, bill); err != nil {
			s.log.Warn("bill statement not sent, will retry",
				zap.String("bill_id", bill.ID.String()),
				zap.Error(err),
			)
			continue
		}
		sent++
	}
	return sent, nil
}

// sendStatement records emailed_at only after a successful send.
func (s *Service) sendStatement(ctx context.Context, policy platformsettingdomain.FeePolicy, bill domain.Bill) error {
	profile, err := s.accounts.GetProviderProfile(ctx, bill.ProviderID)
	if err != nil {
		return err
	}
	breakdown, err := s.aggregator.Compute(ctx, policy, profile.Provider, bill.Month)
	if err != nil {
		return err
	}

	err = s.notifier.Send(ctx, notificationdomain.Message{
		Template: notificationdomain.TemplateBillStatement,
		Recipient: notificationdomain.Recipient{
			UserID:    profile.User.ID,
			Email:     profile.User.Email,
			Name:      profile.User.FullName,
			PushToken: profile.User.PushToken,
		},
		Data: map[string]any{
			"bill_id":         bill.ID.String(),
			"account_number":  profile.Provider.AccountNumber,
			"month":           clock.MonthKey(bill.Month),
			"total":           bill.TotalAmount,
			"fee":             bill.FeeAmount,
			"fee_percentage":  bill.FeePercentage,
			"credits_applied": breakdown.CreditsApplied,
			"amount_due":      breakdown.AmountDue,
			"due_date":        bill.DueDate.In(s.clock.Location()).Format("2006-01-02 15:04"),
		},
	})
	if err != nil {
		return err
	}
	return s.repo.MarkEmailed(ctx, s.db, bill.ID, s.clock.Now().UTC())
}

func (s *Service) Get(ctx context.Context, providerID snowflake.ID, month time.Time) (*domain.Bill, error) {
	bill, err := s.repo.Find(ctx, s.db, providerID, month)
	if err != nil {
		return nil, err
	}
	if bill == nil {
		return nil, domain.ErrBillNotFound
	}
	return bill, nil
}

func (s *Service) ListForProvider(ctx context.Context, providerID snowflake.ID) ([]domain.Bill, error) {
	return s.repo.ListForProvider(ctx, s.db, providerID)
}
