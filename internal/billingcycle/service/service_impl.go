package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/slotwise/internal/account/domain"
	billdomain "github.com/smallbiznis/slotwise/internal/bill/domain"
	"github.com/smallbiznis/slotwise/internal/billingcycle/domain"
	"github.com/smallbiznis/slotwise/internal/clock"
	notificationdomain "github.com/smallbiznis/slotwise/internal/notification/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Accounts accountdomain.Service
	Notifier notificationdomain.Dispatcher
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	repo     domain.Repository
	accounts accountdomain.Service
	notifier notificationdomain.Dispatcher
}

func NewService(p ServiceParam) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("billingcycle.service"),
		genID: p.GenID,
		clock: p.Clock,

		repo:     p.Repo,
		accounts: p.Accounts,
		notifier: p.Notifier,
	}
}

func (s *Service) Ensure(ctx context.Context, accountNumber string, month time.Time) (*domain.BillingCycle, error) {
	provider, err := s.resolveAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	cycle, _, err := s.ensure(ctx, s.db, provider, month)
	return cycle, err
}

func (s *Service) ensure(ctx context.Context, db *gorm.DB, provider *accountdomain.Provider, month time.Time) (*domain.BillingCycle, bool, error) {
	now := s.clock.Now().UTC()
	return s.repo.Ensure(ctx, db, &domain.BillingCycle{
		ID:             s.genID.Generate(),
		ProviderID:     provider.ID,
		AccountNumber:  provider.AccountNumber,
		CycleMonth:     clock.NormalizeMonth(month),
		IsPaid:         false,
		CreditsApplied: 0,
		CreatedAt:      now,
		UpdatedAt:      now,
	})
}

func (s *Service) EnsureForMonth(ctx context.Context, month time.Time) (int, error) {
	providers, err := s.accounts.ListProviders(ctx)
	if err != nil {
		return 0, err
	}

	month = clock.NormalizeMonth(month)
	created := 0
	var errs []error
	for i := range providers {
		if err := ctx.Err(); err != nil {
			return created, err
		}
		_, ok, err := s.ensure(ctx, s.db, &providers[i], month)
		if err != nil {
			s.log.Warn("ensure billing cycle failed",
				zap.String("account_number", providers[i].AccountNumber),
				zap.String("cycle_month", clock.MonthKey(month)),
				zap.Error(err),
			)
			errs = append(errs, err)
			continue
		}
		if ok {
			created++
		}
	}

	s.log.Info("billing cycles ensured",
		zap.String("cycle_month", clock.MonthKey(month)),
		zap.Int("providers", len(providers)),
		zap.Int("created", created),
	)
	return created, errors.Join(errs...)
}

func (s *Service) MarkPaid(ctx context.Context, accountNumber string, month time.Time) (*domain.BillingCycle, error) {
	provider, err := s.resolveAccount(ctx, accountNumber)
	if err != nil {
		return nil, err
	}
	month = clock.NormalizeMonth(month)
	now := s.clock.Now().UTC()

	var (
		cycle   *domain.BillingCycle
		changed bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ensured, _, err := s.ensure(ctx, tx, provider, month)
		if err != nil {
			return err
		}
		changed, err = s.repo.MarkPaid(ctx, tx, ensured.ID, now)
		if err != nil {
			return err
		}
		if changed {
			if err := mirrorBillPaid(ctx, tx, provider.ID, month, true, &now); err != nil {
				return err
			}
		}
		cycle, err = s.repo.Find(ctx, tx, provider.AccountNumber, month, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.log.Info("billing cycle paid",
			zap.String("account_number", provider.AccountNumber),
			zap.String("cycle_month", clock.MonthKey(month)),
		)
		s.notifyPaid(ctx, provider, month)
	}
	return cycle, nil
}

func (s *Service) SetPaidState(ctx context.Context, providerID snowflake.ID, month time.Time, paid bool) (*domain.BillingCycle, error) {
	provider, err := s.accounts.GetProvider(ctx, providerID)
	if err != nil {
		return nil, err
	}
	month = clock.NormalizeMonth(month)

	now := s.clock.Now().UTC()
	var paidAt *time.Time
	if paid {
		paidAt = &now
	}

	var cycle *domain.BillingCycle
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ensured, _, err := s.ensure(ctx, tx, provider, month)
		if err != nil {
			return err
		}
		if ensured.IsPaid && paid && ensured.PaidAt != nil {
			paidAt = ensured.PaidAt
		}
		if err := s.repo.SetPaid(ctx, tx, ensured.ID, paid, paidAt, now); err != nil {
			return err
		}
		if err := mirrorBillPaid(ctx, tx, provider.ID, month, paid, paidAt); err != nil {
			return err
		}
		cycle, err = s.repo.Find(ctx, tx, provider.AccountNumber, month, false)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("billing cycle paid state overridden",
		zap.String("account_number", provider.AccountNumber),
		zap.String("cycle_month", clock.MonthKey(month)),
		zap.Bool("paid", paid),
	)
	return cycle, nil
}

func (s *Service) Get(ctx context.Context, accountNumber string, month time.Time) (*domain.BillingCycle, error) {
	cycle, err := s.repo.Find(ctx, s.db, strings.TrimSpace(accountNumber), month, false)
	if err != nil {
		return nil, err
	}
	if cycle == nil {
		return nil, domain.ErrCycleNotFound
	}
	return cycle, nil
}

func (s *Service) ListForMonth(ctx context.Context, month time.Time) ([]domain.BillingCycle, error) {
	return s.repo.ListForMonth(ctx, s.db, month, false)
}

func (s *Service) resolveAccount(ctx context.Context, accountNumber string) (*accountdomain.Provider, error) {
	accountNumber = strings.TrimSpace(accountNumber)
	if accountNumber == "" {
		return nil, domain.ErrInvalidAccount
	}
	return s.accounts.GetProviderByAccount(ctx, accountNumber)
}

func (s *Service) notifyPaid(ctx context.Context, provider *accountdomain.Provider, month time.Time) {
	user, err := s.accounts.GetUser(ctx, provider.UserID)
	if err != nil {
		s.log.Warn("payment notification skipped", zap.String("provider_id", provider.ID.String()), zap.Error(err))
		return
	}
	s.notifier.Notify(ctx, notificationdomain.Message{
		Template: notificationdomain.TemplatePaymentReceived,
		Recipient: notificationdomain.Recipient{
			UserID:    user.ID,
			Email:     user.Email,
			Name:      user.FullName,
			PushToken: user.PushToken,
		},
		Data: map[string]any{
			"account_number": provider.AccountNumber,
			"month":          clock.MonthKey(month),
		},
	})
}

// mirrorBillPaid copies the cycle's paid state onto the month's bill, if any.
func mirrorBillPaid(ctx context.Context, tx *gorm.DB, providerID snowflake.ID, month time.Time, paid bool, paidAt *time.Time) error {
	return tx.WithContext(ctx).
		Model(&billdomain.Bill{}).
		Where("provider_id = ? AND month = ?", providerID, month).
		Updates(map[string]any{
			"is_paid": paid,
			"paid_at": paidAt,
		}).Error
}
