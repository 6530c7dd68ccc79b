package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	accountdomain "github.com/smallbiznis/slotwise/internal/account/domain"
	billingcycledomain "github.com/smallbiznis/slotwise/internal/billingcycle/domain"
	"github.com/smallbiznis/slotwise/internal/clock"
	"github.com/smallbiznis/slotwise/internal/config"
	notificationdomain "github.com/smallbiznis/slotwise/internal/notification/domain"
	"github.com/smallbiznis/slotwise/internal/suspension/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Clock    clock.Clock
	Policy   config.BillingPolicy
	Cycles   billingcycledomain.Repository
	Accounts accountdomain.Service
	Notifier notificationdomain.Dispatcher
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	clock     clock.Clock
	cutoffDay int

	cycles   billingcycledomain.Repository
	accounts accountdomain.Service
	notifier notificationdomain.Dispatcher
}

func NewService(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("suspension.service"),
		clock:     p.Clock,
		cutoffDay: p.Policy.SuspensionCutoffDay,

		cycles:   p.Cycles,
		accounts: p.Accounts,
		notifier: p.Notifier,
	}
}

func (s *Service) SuspendUnpaid(ctx context.Context, reference time.Time) (int, error) {
	loc := s.clock.Location()
	if clock.DayOfMonth(reference, loc) < s.cutoffDay {
		return 0, nil
	}
	month := clock.CycleMonth(reference, loc)

	unpaid, err := s.cycles.ListForMonth(ctx, s.db, month, true)
	if err != nil {
		return 0, err
	}

	suspended := 0
	var errs []error
	for _, cycle := range unpaid {
		if err := ctx.Err(); err != nil {
			return suspended, err
		}
		changed, user, err := s.suspendProvider(ctx, cycle)
		if err != nil {
			errs = append(errs, fmt.Errorf("account %s: %w", cycle.AccountNumber, err))
			continue
		}
		if !changed {
			continue
		}
		suspended++
		s.log.Info("provider suspended for unpaid cycle",
			zap.String("account_number", cycle.AccountNumber),
			zap.String("cycle_month", clock.MonthKey(month)),
		)
		s.notifier.Notify(ctx, notificationdomain.Message{
			Template: notificationdomain.TemplateAccountSuspended,
			Recipient: notificationdomain.Recipient{
				UserID:    user.ID,
				Email:     user.Email,
				Name:      user.FullName,
				PushToken: user.PushToken,
			},
			Data: map[string]any{
				"account_number": cycle.AccountNumber,
				"month":          clock.MonthKey(month),
			},
		})
	}
	return suspended, errors.Join(errs...)
}

// suspendProvider flips is_suspended only when it is still false, so reruns
// and overlapping sweeps report each user at most once.
func (s *Service) suspendProvider(ctx context.Context, cycle billingcycledomain.BillingCycle) (bool, *accountdomain.User, error) {
	provider, err := s.accounts.GetProviderByAccount(ctx, cycle.AccountNumber)
	if err != nil {
		return false, nil, err
	}
	user, err := s.accounts.GetUser(ctx, provider.UserID)
	if err != nil {
		return false, nil, err
	}

	res := s.db.WithContext(ctx).
		Model(&accountdomain.User{}).
		Where("id = ? AND is_suspended = ?", user.ID, false).
		Updates(map[string]any{
			"is_suspended": true,
			"updated_at":   s.clock.Now().UTC(),
		})
	if res.Error != nil {
		return false, nil, res.Error
	}
	return res.RowsAffected == 1, user, nil
}
