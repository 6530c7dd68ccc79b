package service_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	accountdomain "github.com/smallbiznis/slotwise/internal/account/domain"
	bookingdomain "github.com/smallbiznis/slotwise/internal/booking/domain"
	"github.com/smallbiznis/slotwise/internal/clock"
	feedomain "github.com/smallbiznis/slotwise/internal/fee/domain"
	notificationdomain "github.com/smallbiznis/slotwise/internal/notification/domain"
	"github.com/smallbiznis/slotwise/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, now func(h *testkit.Harness) time.Time) (*testkit.Harness, testkit.Provider, accountdomain.User) {
	t.Helper()
	h := testkit.New(t, time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC))
	if now != nil {
		h.Clock.Set(now(h))
	}
	provider := h.SeedProvider(t, "barber@example.com", 1000, 60)
	customer := h.SeedCustomer(t, "client@example.com")
	return h, provider, customer
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()
	h, p, customer := setup(t, nil)
	start := h.Clock.Now().Add(2 * time.Hour)

	booking, err := h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: customer.ID,
		ServiceID:  p.Offering.ID,
		StartTime:  start,
	})
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusConfirmed, booking.Status)
	assert.True(t, booking.EndTime.Equal(start.Add(time.Hour)))

	assert.Equal(t, 1, h.Notifier.CountFor(notificationdomain.TemplateBookingCreated, customer.ID))
	assert.Equal(t, 1, h.Notifier.CountFor(notificationdomain.TemplateBookingCreated, p.User.ID))

	stored, err := h.Bookings.Get(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusConfirmed, stored.Status)
}

func TestCreateBookingRejections(t *testing.T) {
	ctx := context.Background()
	h, p, customer := setup(t, nil)
	now := h.Clock.Now()

	_, err := h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: customer.ID, ServiceID: p.Offering.ID, StartTime: now,
	})
	assert.ErrorIs(t, err, bookingdomain.ErrStartNotInFuture)
	assert.True(t, bookingdomain.IsValidation(err))

	_, err = h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: customer.ID, ServiceID: h.GenID.Generate(), StartTime: now.Add(time.Hour),
	})
	assert.ErrorIs(t, err, bookingdomain.ErrServiceNotFound)

	_, err = h.Accounts.SetSuspension(ctx, p.User.ID, true)
	require.NoError(t, err)
	_, err = h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: customer.ID, ServiceID: p.Offering.ID, StartTime: now.Add(time.Hour),
	})
	assert.ErrorIs(t, err, bookingdomain.ErrProviderSuspended)
	assert.True(t, bookingdomain.IsPermission(err))
	_, err = h.Accounts.SetSuspension(ctx, p.User.ID, false)
	require.NoError(t, err)

	require.NoError(t, h.Accounts.ArchiveOffering(ctx, p.Offering.ID))
	_, err = h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: customer.ID, ServiceID: p.Offering.ID, StartTime: now.Add(time.Hour),
	})
	assert.ErrorIs(t, err, bookingdomain.ErrServiceInactive)

	assert.Zero(t, h.Notifier.Count(notificationdomain.TemplateBookingCreated))
}

func TestCreateBookingOverlap(t *testing.T) {
	ctx := context.Background()
	h, p, customer := setup(t, nil)
	other := h.SeedCustomer(t, "other@example.com")
	start := h.Clock.Now().Add(3 * time.Hour)

	first, err := h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: customer.ID, ServiceID: p.Offering.ID, StartTime: start,
	})
	require.NoError(t, err)

	_, err = h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: other.ID, ServiceID: p.Offering.ID, StartTime: start.Add(30 * time.Minute),
	})
	assert.ErrorIs(t, err, bookingdomain.ErrSlotUnavailable)

	// Back-to-back slots do not overlap.
	_, err = h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: other.ID, ServiceID: p.Offering.ID, StartTime: start.Add(time.Hour),
	})
	require.NoError(t, err)

	// A cancelled booking frees its slot.
	_, err = h.Bookings.Cancel(ctx, bookingdomain.CancelBookingRequest{
		BookingID: first.ID, ActorID: customer.ID, Role: bookingdomain.ActorClient,
	})
	require.NoError(t, err)
	_, err = h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: other.ID, ServiceID: p.Offering.ID, StartTime: start.Add(-30 * time.Minute),
	})
	require.NoError(t, err)
}

// An unconfirmed request holds its slot until the provider answers or it is
// cancelled, so nobody else can book over it in the meantime.
func TestPendingBookingHoldsSlot(t *testing.T) {
	ctx := context.Background()
	h, p, customer := setup(t, nil)
	other := h.SeedCustomer(t, "other@example.com")
	offering, err := h.Accounts.CreateOffering(ctx, accountdomain.CreateOfferingRequest{
		ProviderID:           p.Provider.ID,
		Name:                 "Consultation",
		Price:                500,
		DurationMinutes:      60,
		RequiresConfirmation: true,
	})
	require.NoError(t, err)
	start := h.Clock.Now().Add(3 * time.Hour)

	pending, err := h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: customer.ID, ServiceID: offering.ID, StartTime: start,
	})
	require.NoError(t, err)
	require.Equal(t, bookingdomain.StatusPending, pending.Status)

	_, err = h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: other.ID, ServiceID: offering.ID, StartTime: start.Add(15 * time.Minute),
	})
	assert.ErrorIs(t, err, bookingdomain.ErrSlotUnavailable)

	_, err = h.Bookings.Cancel(ctx, bookingdomain.CancelBookingRequest{
		BookingID: pending.ID, ActorID: customer.ID, Role: bookingdomain.ActorClient,
	})
	require.NoError(t, err)
	_, err = h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: other.ID, ServiceID: offering.ID, StartTime: start.Add(15 * time.Minute),
	})
	require.NoError(t, err)
}

func TestCompletedBookingIsBilledAndCannotBeCancelled(t *testing.T) {
	ctx := context.Background()
	h, p, customer := setup(t, nil)

	booking, err := h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: customer.ID, ServiceID: p.Offering.ID, StartTime: h.Clock.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	h.Clock.Advance(3 * time.Hour)
	moved, err := h.Bookings.AutoComplete(ctx, h.Clock.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, moved)

	policy, err := h.Settings.Policy(ctx)
	require.NoError(t, err)
	month := clock.CycleMonth(h.Clock.Now(), h.Clock.Location())
	breakdown, err := h.Aggregator.Compute(ctx, policy, p.Provider, month)
	require.NoError(t, err)
	assert.Equal(t, feedomain.StrategyLive, breakdown.Strategy)
	assert.EqualValues(t, 1000, breakdown.Total)
	assert.EqualValues(t, 100, breakdown.Fee)
	assert.EqualValues(t, 100, breakdown.AmountDue)

	_, err = h.Bookings.Cancel(ctx, bookingdomain.CancelBookingRequest{
		BookingID: booking.ID, ActorID: customer.ID, Role: bookingdomain.ActorClient,
	})
	assert.ErrorIs(t, err, bookingdomain.ErrBookingCompleted)
	assert.True(t, bookingdomain.IsPermanentState(err))
	assert.Zero(t, h.Notifier.Count(notificationdomain.TemplateBookingCancelled))

	// Re-running the sweep moves nothing.
	moved, err = h.Bookings.AutoComplete(ctx, h.Clock.Now())
	require.NoError(t, err)
	assert.Zero(t, moved)
}

func TestCancelledBookingIsNotBilled(t *testing.T) {
	ctx := context.Background()
	h, p, customer := setup(t, nil)

	booking, err := h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: customer.ID, ServiceID: p.Offering.ID, StartTime: h.Clock.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	cancelled, err := h.Bookings.Cancel(ctx, bookingdomain.CancelBookingRequest{
		BookingID: booking.ID, ActorID: p.User.ID, Role: bookingdomain.ActorProvider,
	})
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledByRole)
	assert.Equal(t, bookingdomain.ActorProvider, *cancelled.CancelledByRole)

	assert.Equal(t, 1, h.Notifier.CountFor(notificationdomain.TemplateBookingCancelled, customer.ID))
	assert.Equal(t, 1, h.Notifier.CountFor(notificationdomain.TemplateBookingCancelReceipt, p.User.ID))

	h.Clock.Advance(3 * time.Hour)
	moved, err := h.Bookings.AutoComplete(ctx, h.Clock.Now())
	require.NoError(t, err)
	assert.Zero(t, moved)

	policy, err := h.Settings.Policy(ctx)
	require.NoError(t, err)
	breakdown, err := h.Aggregator.Compute(ctx, policy, p.Provider, clock.CycleMonth(h.Clock.Now(), h.Clock.Location()))
	require.NoError(t, err)
	assert.Zero(t, breakdown.Fee)
	assert.Zero(t, breakdown.AmountDue)
}

func TestCancelRequiresParticipant(t *testing.T) {
	ctx := context.Background()
	h, p, customer := setup(t, nil)
	stranger := h.SeedCustomer(t, "stranger@example.com")

	booking, err := h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: customer.ID, ServiceID: p.Offering.ID, StartTime: h.Clock.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = h.Bookings.Cancel(ctx, bookingdomain.CancelBookingRequest{
		BookingID: booking.ID, ActorID: stranger.ID, Role: bookingdomain.ActorClient,
	})
	assert.ErrorIs(t, err, bookingdomain.ErrNotParticipant)

	_, err = h.Bookings.Cancel(ctx, bookingdomain.CancelBookingRequest{
		BookingID: booking.ID, ActorID: customer.ID, Role: bookingdomain.ActorProvider,
	})
	assert.ErrorIs(t, err, bookingdomain.ErrNotParticipant)

	_, err = h.Bookings.Cancel(ctx, bookingdomain.CancelBookingRequest{
		BookingID: booking.ID, ActorID: customer.ID, Role: "admin",
	})
	assert.ErrorIs(t, err, bookingdomain.ErrInvalidActor)
}

func TestConcurrentCancelFiresSideEffectsOnce(t *testing.T) {
	ctx := context.Background()
	h, p, customer := setup(t, nil)

	booking, err := h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: customer.ID, ServiceID: p.Offering.ID, StartTime: h.Clock.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	const callers = 2
	var wg sync.WaitGroup
	results := make([]*bookingdomain.Booking, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = h.Bookings.Cancel(ctx, bookingdomain.CancelBookingRequest{
				BookingID: booking.ID, ActorID: customer.ID, Role: bookingdomain.ActorClient,
			})
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, bookingdomain.StatusCancelled, results[i].Status)
	}
	assert.Equal(t, 1, h.Notifier.CountFor(notificationdomain.TemplateBookingCancelled, p.User.ID))
	assert.Equal(t, 1, h.Notifier.CountFor(notificationdomain.TemplateBookingCancelReceipt, customer.ID))
	assert.Equal(t, 2, h.Notifier.Count(notificationdomain.TemplateBookingCancelled)+h.Notifier.Count(notificationdomain.TemplateBookingCancelReceipt))
}

func TestConfirmPendingBooking(t *testing.T) {
	ctx := context.Background()
	h, p, customer := setup(t, func(h *testkit.Harness) time.Time {
		return h.Local(2024, 3, 14, 9, 0)
	})
	offering, err := h.Accounts.CreateOffering(ctx, accountdomain.CreateOfferingRequest{
		ProviderID:           p.Provider.ID,
		Name:                 "Consultation",
		Price:                500,
		DurationMinutes:      30,
		RequiresConfirmation: true,
	})
	require.NoError(t, err)

	booking, err := h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: customer.ID, ServiceID: offering.ID, StartTime: h.Clock.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusPending, booking.Status)

	_, err = h.Bookings.Confirm(ctx, bookingdomain.ConfirmBookingRequest{
		BookingID: booking.ID, ProviderUserID: customer.ID,
	})
	assert.ErrorIs(t, err, bookingdomain.ErrNotParticipant)

	// Day 14: an unpaid cycle does not block confirmation yet.
	confirmed, err := h.Bookings.Confirm(ctx, bookingdomain.ConfirmBookingRequest{
		BookingID: booking.ID, ProviderUserID: p.User.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusConfirmed, confirmed.Status)
	assert.Equal(t, 1, h.Notifier.CountFor(notificationdomain.TemplateBookingConfirmed, customer.ID))

	again, err := h.Bookings.Confirm(ctx, bookingdomain.ConfirmBookingRequest{
		BookingID: booking.ID, ProviderUserID: p.User.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusConfirmed, again.Status)
	assert.Equal(t, 1, h.Notifier.Count(notificationdomain.TemplateBookingConfirmed))
}

func TestConfirmLocksProviderWithUnpaidCycleAfterCutoff(t *testing.T) {
	ctx := context.Background()
	h, p, customer := setup(t, func(h *testkit.Harness) time.Time {
		return h.Local(2024, 3, 15, 9, 0)
	})
	offering, err := h.Accounts.CreateOffering(ctx, accountdomain.CreateOfferingRequest{
		ProviderID:           p.Provider.ID,
		Name:                 "Consultation",
		Price:                500,
		DurationMinutes:      30,
		RequiresConfirmation: true,
	})
	require.NoError(t, err)
	booking, err := h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: customer.ID, ServiceID: offering.ID, StartTime: h.Clock.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	_, err = h.Bookings.Confirm(ctx, bookingdomain.ConfirmBookingRequest{
		BookingID: booking.ID, ProviderUserID: p.User.ID,
	})
	require.True(t, errors.Is(err, bookingdomain.ErrProviderLocked), "got %v", err)

	provider, err := h.Accounts.GetProvider(ctx, p.Provider.ID)
	require.NoError(t, err)
	assert.True(t, provider.IsLocked)
	assert.NotNil(t, provider.LockedAt)

	stored, err := h.Bookings.Get(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusPending, stored.Status)

	month := clock.CycleMonth(h.Clock.Now(), h.Clock.Location())
	_, err = h.Cycles.MarkPaid(ctx, p.Provider.AccountNumber, month)
	require.NoError(t, err)

	// Paying alone does not lift the lock.
	_, err = h.Bookings.Confirm(ctx, bookingdomain.ConfirmBookingRequest{
		BookingID: booking.ID, ProviderUserID: p.User.ID,
	})
	assert.ErrorIs(t, err, bookingdomain.ErrProviderLocked)

	_, err = h.Accounts.SetLockState(ctx, p.Provider.ID, false)
	require.NoError(t, err)
	confirmed, err := h.Bookings.Confirm(ctx, bookingdomain.ConfirmBookingRequest{
		BookingID: booking.ID, ProviderUserID: p.User.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusConfirmed, confirmed.Status)
}

func TestConfirmCancelledBooking(t *testing.T) {
	ctx := context.Background()
	h, p, customer := setup(t, nil)
	offering, err := h.Accounts.CreateOffering(ctx, accountdomain.CreateOfferingRequest{
		ProviderID: p.Provider.ID, Name: "Consultation", Price: 500, DurationMinutes: 30, RequiresConfirmation: true,
	})
	require.NoError(t, err)
	booking, err := h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: customer.ID, ServiceID: offering.ID, StartTime: h.Clock.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = h.Bookings.Cancel(ctx, bookingdomain.CancelBookingRequest{
		BookingID: booking.ID, ActorID: customer.ID, Role: bookingdomain.ActorClient,
	})
	require.NoError(t, err)

	_, err = h.Bookings.Confirm(ctx, bookingdomain.ConfirmBookingRequest{
		BookingID: booking.ID, ProviderUserID: p.User.ID,
	})
	assert.ErrorIs(t, err, bookingdomain.ErrBookingCancelled)
}

func TestSendUpcomingReminders(t *testing.T) {
	ctx := context.Background()
	h, p, customer := setup(t, nil)
	now := h.Clock.Now()

	booking, err := h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: customer.ID, ServiceID: p.Offering.ID, StartTime: now.Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: customer.ID, ServiceID: p.Offering.ID, StartTime: now.Add(5 * time.Hour),
	})
	require.NoError(t, err)

	h.Notifier.SetSendErr(errors.New("smtp down"))
	sent, err := h.Bookings.SendUpcomingReminders(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, sent)

	stored, err := h.Bookings.Get(ctx, booking.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.ReminderSentAt)

	h.Notifier.SetSendErr(nil)
	sent, err = h.Bookings.SendUpcomingReminders(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 1, sent)

	sent, err = h.Bookings.SendUpcomingReminders(ctx, now)
	require.NoError(t, err)
	assert.Zero(t, sent)
	assert.Equal(t, 1, h.Notifier.CountFor(notificationdomain.TemplateBookingReminder, customer.ID))
}

func TestListBookings(t *testing.T) {
	ctx := context.Background()
	h, p, customer := setup(t, nil)
	other := h.SeedProvider(t, "other@example.com", 200, 30)

	_, err := h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: customer.ID, ServiceID: p.Offering.ID, StartTime: h.Clock.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = h.Bookings.Create(ctx, bookingdomain.CreateBookingRequest{
		CustomerID: customer.ID, ServiceID: other.Offering.ID, StartTime: h.Clock.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	mine, err := h.Bookings.ListForCustomer(ctx, customer.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	theirs, err := h.Bookings.ListForProvider(ctx, p.Provider.ID)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, p.Offering.ID, theirs[0].ServiceID)

	_, err = h.Bookings.Get(ctx, h.GenID.Generate())
	assert.True(t, bookingdomain.IsNotFound(err))
}
