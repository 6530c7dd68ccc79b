package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	accountdomain "github.com/smallbiznis/slotwise/internal/account/domain"
	billdomain "github.com/smallbiznis/slotwise/internal/bill/domain"
	billingcycledomain "github.com/smallbiznis/slotwise/internal/billingcycle/domain"
	"github.com/smallbiznis/slotwise/internal/booking/domain"
	"github.com/smallbiznis/slotwise/internal/booking/guard"
	"github.com/smallbiznis/slotwise/internal/clock"
	"github.com/smallbiznis/slotwise/internal/config"
	notificationdomain "github.com/smallbiznis/slotwise/internal/notification/domain"
	obsmetrics "github.com/smallbiznis/slotwise/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Policy     config.BillingPolicy
	Accounts   accountdomain.Service
	Cycles     billingcycledomain.Service
	Bills      billdomain.Service
	Guard      guard.Locker
	Notifier   notificationdomain.Dispatcher
	ObsMetrics *obsmetrics.Metrics `optional:"true"`
}

type Service struct {
	db     *gorm.DB
	log    *zap.Logger
	genID  *snowflake.Node
	clock  clock.Clock
	policy config.BillingPolicy

	accounts   accountdomain.Service
	cycles     billingcycledomain.Service
	bills      billdomain.Service
	guard      guard.Locker
	notifier   notificationdomain.Dispatcher
	obsMetrics *obsmetrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:     p.DB,
		log:    p.Log.Named("booking.service"),
		genID:  p.GenID,
		clock:  p.Clock,
		policy: p.Policy,

		accounts:   p.Accounts,
		cycles:     p.Cycles,
		bills:      p.Bills,
		guard:      p.Guard,
		notifier:   p.Notifier,
		obsMetrics: p.ObsMetrics,
	}
}

// bookingParties carries what notifications need about both sides.
type bookingParties struct {
	offering accountdomain.Offering
	provider accountdomain.ProviderProfile
	customer accountdomain.User
}

func (s *Service) Create(ctx context.Context, req domain.CreateBookingRequest) (*domain.Booking, error) {
	customer, err := s.accounts.GetUser(ctx, req.CustomerID)
	if err != nil {
		return nil, err
	}
	offering, err := s.accounts.GetOffering(ctx, req.ServiceID)
	if err != nil {
		if errors.Is(err, accountdomain.ErrOfferingNotFound) {
			return nil, domain.ErrServiceNotFound
		}
		return nil, err
	}
	if !offering.IsActive {
		return nil, domain.ErrServiceInactive
	}
	profile, err := s.accounts.GetProviderProfile(ctx, offering.ProviderID)
	if err != nil {
		return nil, err
	}
	if profile.User.IsSuspended {
		return nil, domain.ErrProviderSuspended
	}

	now := s.clock.Now().UTC()
	start := req.StartTime.UTC()
	if !start.After(now) {
		return nil, domain.ErrStartNotInFuture
	}
	end := start.Add(offering.Duration())

	status := domain.StatusConfirmed
	if offering.RequiresConfirmation {
		status = domain.StatusPending
	}
	booking := domain.Booking{
		ID:         s.genID.Generate(),
		CustomerID: customer.ID,
		ServiceID:  offering.ID,
		StartTime:  start,
		EndTime:    end,
		Status:     status,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Serializes creation per service so two overlapping requests cannot
		// both pass the conflict check.
		var locked accountdomain.Offering
		if err := tx.WithContext(ctx).
			Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
			Where("id = ?", offering.ID).
			First(&locked).Error; err != nil {
			return err
		}

		var conflicts int64
		if err := tx.WithContext(ctx).
			Model(&domain.Booking{}).
			Where("service_id = ?", offering.ID).
			Where("status IN ?", []domain.Status{domain.StatusConfirmed, domain.StatusPending}).
			Where("end_time > ?", now).
			Where("start_time < ? AND end_time > ?", end, start).
			Count(&conflicts).Error; err != nil {
			return err
		}
		if conflicts > 0 {
			return domain.ErrSlotUnavailable
		}
		return tx.WithContext(ctx).Create(&booking).Error
	})
	if err != nil {
		return nil, err
	}

	s.obsMetrics.RecordBookingTransition(ctx, string(status), 1)
	s.log.Info("booking created",
		zap.String("booking_id", booking.ID.String()),
		zap.String("service_id", offering.ID.String()),
		zap.String("status", string(status)),
	)

	parties := bookingParties{offering: *offering, provider: *profile, customer: *customer}
	s.notify(ctx, notificationdomain.TemplateBookingCreated, parties.customer, booking, parties)
	s.notify(ctx, notificationdomain.TemplateBookingCreated, parties.provider.User, booking, parties)
	return &booking, nil
}

func (s *Service) Confirm(ctx context.Context, req domain.ConfirmBookingRequest) (*domain.Booking, error) {
	booking, err := s.Get(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	parties, err := s.loadParties(ctx, booking)
	if err != nil {
		return nil, err
	}
	if parties.provider.User.ID != req.ProviderUserID {
		return nil, domain.ErrNotParticipant
	}

	switch booking.Status {
	case domain.StatusCancelled:
		return nil, domain.ErrBookingCancelled
	case domain.StatusCompleted:
		return nil, domain.ErrBookingCompleted
	case domain.StatusConfirmed:
		return booking, nil
	}

	if parties.provider.User.IsSuspended {
		return nil, domain.ErrProviderSuspended
	}
	if parties.provider.Provider.IsLocked {
		return nil, domain.ErrProviderLocked
	}
	if err := s.enforceCycleCompliance(ctx, parties.provider.Provider); err != nil {
		return nil, err
	}

	now := s.clock.Now().UTC()
	var confirmed domain.Booking
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.lockBooking(ctx, tx, booking.ID)
		if err != nil {
			return err
		}
		if current.Status == domain.StatusConfirmed {
			confirmed = *current
			return nil
		}
		if err := domain.Transition(current.Status, domain.StatusConfirmed); err != nil {
			return err
		}
		if err := tx.WithContext(ctx).
			Model(&domain.Booking{}).
			Where("id = ?", current.ID).
			Updates(map[string]any{
				"status":     domain.StatusConfirmed,
				"updated_at": now,
			}).Error; err != nil {
			return err
		}
		current.Status = domain.StatusConfirmed
		current.UpdatedAt = now
		confirmed = *current
		return nil
	})
	if err != nil {
		return nil, err
	}
	if booking.Status == domain.StatusConfirmed {
		return &confirmed, nil
	}

	s.obsMetrics.RecordBookingTransition(ctx, string(domain.StatusConfirmed), 1)
	s.log.Info("booking confirmed", zap.String("booking_id", confirmed.ID.String()))
	s.notify(ctx, notificationdomain.TemplateBookingConfirmed, parties.customer, confirmed, parties)
	return &confirmed, nil
}

// enforceCycleCompliance locks the provider when the current cycle is unpaid
// on or after the cutoff day. The lock is committed before the rejection.
func (s *Service) enforceCycleCompliance(ctx context.Context, provider accountdomain.Provider) error {
	now := s.clock.Now()
	loc := s.clock.Location()
	if clock.DayOfMonth(now, loc) < s.policy.SuspensionCutoffDay {
		return nil
	}

	cycle, err := s.cycles.Ensure(ctx, provider.AccountNumber, clock.CycleMonth(now, loc))
	if err != nil {
		return err
	}
	if cycle.IsPaid {
		return nil
	}

	if _, err := s.accounts.SetLockState(ctx, provider.ID, true); err != nil {
		return err
	}
	s.log.Warn("provider locked at confirmation, current cycle unpaid",
		zap.String("account_number", provider.AccountNumber),
		zap.String("cycle_month", clock.MonthKey(cycle.CycleMonth)),
	)
	return domain.ErrProviderLocked
}

func (s *Service) Cancel(ctx context.Context, req domain.CancelBookingRequest) (*domain.Booking, error) {
	if !req.Role.Valid() || req.ActorID == 0 {
		return nil, domain.ErrInvalidActor
	}
	booking, err := s.Get(ctx, req.BookingID)
	if err != nil {
		return nil, err
	}
	parties, err := s.loadParties(ctx, booking)
	if err != nil {
		return nil, err
	}
	switch req.Role {
	case domain.ActorClient:
		if booking.CustomerID != req.ActorID {
			return nil, domain.ErrNotParticipant
		}
	case domain.ActorProvider:
		if parties.provider.User.ID != req.ActorID {
			return nil, domain.ErrNotParticipant
		}
	}

	release, err := s.guard.Lock(ctx, guard.BookingKey(booking.ID))
	if err != nil {
		return nil, err
	}
	defer release()

	now := s.clock.Now().UTC()
	var (
		result           domain.Booking
		alreadyCancelled bool
	)
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := s.lockBooking(ctx, tx, booking.ID)
		if err != nil {
			return err
		}
		if current.Status == domain.StatusCancelled {
			alreadyCancelled = true
			result = *current
			return nil
		}
		if err := domain.Transition(current.Status, domain.StatusCancelled); err != nil {
			return err
		}

		actorID := req.ActorID
		role := req.Role
		if err := tx.WithContext(ctx).
			Model(&domain.Booking{}).
			Where("id = ?", current.ID).
			Updates(map[string]any{
				"status":            domain.StatusCancelled,
				"cancelled_by_id":   actorID,
				"cancelled_by_role": role,
				"cancelled_at":      now,
				"updated_at":        now,
			}).Error; err != nil {
			return err
		}
		current.Status = domain.StatusCancelled
		current.CancelledByID = &actorID
		current.CancelledByRole = &role
		current.CancelledAt = &now
		current.UpdatedAt = now
		result = *current
		return nil
	})
	if err != nil {
		return nil, err
	}
	if alreadyCancelled {
		return &result, nil
	}

	s.obsMetrics.RecordBookingTransition(ctx, string(domain.StatusCancelled), 1)
	s.log.Info("booking cancelled",
		zap.String("booking_id", result.ID.String()),
		zap.String("cancelled_by_role", string(req.Role)),
	)

	actor, counterparty := parties.customer, parties.provider.User
	if req.Role == domain.ActorProvider {
		actor, counterparty = parties.provider.User, parties.customer
	}
	s.notify(ctx, notificationdomain.TemplateBookingCancelled, counterparty, result, parties)
	s.notify(ctx, notificationdomain.TemplateBookingCancelReceipt, actor, result, parties)

	month := clock.CycleMonth(result.EndTime, s.clock.Location())
	if err := s.bills.RefreshForBooking(ctx, parties.offering.ProviderID, month); err != nil {
		s.log.Warn("bill refresh after cancellation failed",
			zap.String("booking_id", result.ID.String()),
			zap.Error(err),
		)
	}
	return &result, nil
}

func (s *Service) AutoComplete(ctx context.Context, asOf time.Time) (int64, error) {
	asOf = asOf.UTC()
	res := s.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Where("status = ? AND end_time <= ?", domain.StatusConfirmed, asOf).
		Updates(map[string]any{
			"status":       domain.StatusCompleted,
			"completed_at": asOf,
			"updated_at":   asOf,
		})
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected > 0 {
		s.obsMetrics.RecordBookingTransition(ctx, string(domain.StatusCompleted), res.RowsAffected)
		s.log.Info("bookings auto-completed", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

func (s *Service) SendUpcomingReminders(ctx context.Context, now time.Time) (int, error) {
	target := now.UTC().Add(s.policy.ReminderLead)
	from := target.Add(-s.policy.ReminderWindow)
	to := target.Add(s.policy.ReminderWindow)

	var due []domain.Booking
	if err := s.db.WithContext(ctx).
		Where("status = ? AND reminder_sent_at IS NULL", domain.StatusConfirmed).
		Where("start_time >= ? AND start_time <= ?", from, to).
		Order("start_time").
		Find(&due).Error; err != nil {
		return 0, err
	}

	sent := 0
	for i := range due {
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		booking := due[i]
		parties, err := s.loadParties(ctx, &booking)
		if err != nil {
			s.log.Warn("reminder skipped", zap.String("booking_id", booking.ID.String()), zap.Error(err))
			continue
		}
		if err := s.notifier.Send(ctx, s.message(notificationdomain.TemplateBookingReminder, parties.customer, booking, parties)); err != nil {
			s.log.Warn("reminder not sent, will retry", zap.String("booking_id", booking.ID.String()), zap.Error(err))
			continue
		}
		res := s.db.WithContext(ctx).
			Model(&domain.Booking{}).
			Where("id = ? AND reminder_sent_at IS NULL", booking.ID).
			Update("reminder_sent_at", s.clock.Now().UTC())
		if res.Error != nil {
			return sent, res.Error
		}
		sent++
	}
	return sent, nil
}

func (s *Service) Get(ctx context.Context, bookingID snowflake.ID) (*domain.Booking, error) {
	var rows []domain.Booking
	if err := s.db.WithContext(ctx).Where("id = ?", bookingID).Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrBookingNotFound
	}
	return &rows[0], nil
}

func (s *Service) ListForCustomer(ctx context.Context, customerID snowflake.ID) ([]domain.Booking, error) {
	var bookings []domain.Booking
	err := s.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Order("start_time DESC").
		Find(&bookings).Error
	return bookings, err
}

func (s *Service) ListForProvider(ctx context.Context, providerID snowflake.ID) ([]domain.Booking, error) {
	var bookings []domain.Booking
	err := s.db.WithContext(ctx).
		Model(&domain.Booking{}).
		Joins("JOIN services ON services.id = bookings.service_id").
		Where("services.provider_id = ?", providerID).
		Select("bookings.*").
		Order("bookings.start_time DESC").
		Find(&bookings).Error
	return bookings, err
}

func (s *Service) lockBooking(ctx context.Context, tx *gorm.DB, bookingID snowflake.ID) (*domain.Booking, error) {
	var rows []domain.Booking
	if err := tx.WithContext(ctx).
		Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Where("id = ?", bookingID).
		Limit(1).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, domain.ErrBookingNotFound
	}
	return &rows[0], nil
}

func (s *Service) loadParties(ctx context.Context, booking *domain.Booking) (bookingParties, error) {
	offering, err := s.accounts.GetOffering(ctx, booking.ServiceID)
	if err != nil {
		return bookingParties{}, err
	}
	profile, err := s.accounts.GetProviderProfile(ctx, offering.ProviderID)
	if err != nil {
		return bookingParties{}, err
	}
	customer, err := s.accounts.GetUser(ctx, booking.CustomerID)
	if err != nil {
		return bookingParties{}, err
	}
	return bookingParties{offering: *offering, provider: *profile, customer: *customer}, nil
}

func (s *Service) notify(ctx context.Context, template notificationdomain.Template, to accountdomain.User, booking domain.Booking, parties bookingParties) {
	s.notifier.Notify(ctx, s.message(template, to, booking, parties))
}

func (s *Service) message(template notificationdomain.Template, to accountdomain.User, booking domain.Booking, parties bookingParties) notificationdomain.Message {
	loc := s.clock.Location()
	data := map[string]any{
		"booking_id":   booking.ID.String(),
		"service_name": parties.offering.Name,
		"start_time":   booking.StartTime.In(loc).Format("2006-01-02 15:04"),
		"end_time":     booking.EndTime.In(loc).Format("2006-01-02 15:04"),
		"status":       string(booking.Status),
		"customer":     parties.customer.FullName,
		"provider":     parties.provider.User.FullName,
	}
	if booking.CancelledByRole != nil {
		data["cancelled_by_role"] = string(*booking.CancelledByRole)
	}
	return notificationdomain.Message{
		Template: template,
		Recipient: notificationdomain.Recipient{
			UserID:    to.ID,
			Email:     to.Email,
			Name:      to.FullName,
			PushToken: to.PushToken,
		},
		Data: data,
	}
}
