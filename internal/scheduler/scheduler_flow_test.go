package scheduler

import (
	"context"
	"testing"
	"time"

	bookingdomain "github.com/smallbiznis/slotwise/internal/booking/domain"
	notificationdomain "github.com/smallbiznis/slotwise/internal/notification/domain"
	"github.com/smallbiznis/slotwise/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newHarnessScheduler(t *testing.T, h *testkit.Harness, cfg Config) *Scheduler {
	t.Helper()
	return New(Params{
		Log:        h.Log,
		GenID:      h.GenID,
		Clock:      h.Clock,
		Config:     cfg,
		Bookings:   h.Bookings,
		Bills:      h.Bills,
		Cycles:     h.Cycles,
		Suspension: h.Suspension,
	})
}

func TestJobsDriveMonthEndFlow(t *testing.T) {
	useTestRegistry(t)
	ctx := context.Background()
	h := testkit.New(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	s := newHarnessScheduler(t, h, DefaultConfig())

	late := h.SeedProvider(t, "late@example.com", 1000, 60)
	prompt := h.SeedProvider(t, "prompt@example.com", 400, 30)
	customer := h.SeedCustomer(t, "client@example.com")
	booking := h.InsertBooking(t, customer.ID, late.Offering.ID, h.Local(2024, 3, 10, 10, 0), time.Hour, bookingdomain.StatusConfirmed)

	h.Clock.Set(h.Local(2024, 3, 10, 9, 0))
	require.NoError(t, s.RunJob(ctx, JobBookingReminders))
	reminders := h.Notifier.Count(notificationdomain.TemplateBookingReminder)
	assert.NotZero(t, reminders)
	require.NoError(t, s.RunJob(ctx, JobBookingReminders))
	assert.Equal(t, reminders, h.Notifier.Count(notificationdomain.TemplateBookingReminder))

	h.Clock.Set(h.Local(2024, 3, 10, 11, 30))
	require.NoError(t, s.RunJob(ctx, JobAutoComplete))
	got, err := h.Bookings.Get(ctx, booking.ID)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusCompleted, got.Status)

	h.Clock.Set(h.Local(2024, 4, 1, 0, 10))
	april := time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)
	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.RunJob(ctx, JobEnsureCycles))
	require.NoError(t, s.RunJob(ctx, JobGenerateBills))

	cycle, err := h.Cycles.Get(ctx, late.Provider.AccountNumber, april)
	require.NoError(t, err)
	assert.False(t, cycle.IsPaid)

	bill, err := h.Bills.Get(ctx, late.Provider.ID, march)
	require.NoError(t, err)
	assert.EqualValues(t, 100, bill.FeeAmount)
	assert.Equal(t, 1, h.Notifier.CountFor(notificationdomain.TemplateBillStatement, late.User.ID))

	_, err = h.Cycles.MarkPaid(ctx, prompt.Provider.AccountNumber, april)
	require.NoError(t, err)

	h.Clock.Set(h.Local(2024, 4, 15, 0, 10))
	require.NoError(t, s.RunJob(ctx, JobSuspendUnpaid))

	lateUser, err := h.Accounts.GetUser(ctx, late.User.ID)
	require.NoError(t, err)
	assert.True(t, lateUser.IsSuspended)

	promptUser, err := h.Accounts.GetUser(ctx, prompt.User.ID)
	require.NoError(t, err)
	assert.False(t, promptUser.IsSuspended)
}

func TestGenerateBillsIncludesBookingEndingInLastMinute(t *testing.T) {
	useTestRegistry(t)
	ctx := context.Background()
	h := testkit.New(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	s := newHarnessScheduler(t, h, DefaultConfig())

	p := h.SeedProvider(t, "barber@example.com", 1000, 60)
	customer := h.SeedCustomer(t, "client@example.com")
	h.InsertBooking(t, customer.ID, p.Offering.ID, h.Local(2024, 3, 10, 10, 0), time.Hour, bookingdomain.StatusCompleted)
	lastMinute := h.InsertBooking(t, customer.ID, p.Offering.ID, h.Local(2024, 3, 31, 22, 59), time.Hour, bookingdomain.StatusConfirmed)

	// generate_bills fires ahead of auto_complete on the first tick of April.
	h.Clock.Set(h.Local(2024, 4, 1, 0, 0))
	require.NoError(t, s.RunJob(ctx, JobGenerateBills))
	require.NoError(t, s.RunJob(ctx, JobAutoComplete))
	h.Clock.Set(h.Local(2024, 4, 1, 0, 1))
	require.NoError(t, s.RunJob(ctx, JobGenerateBills))

	got, err := h.Bookings.Get(ctx, lastMinute.ID)
	require.NoError(t, err)
	assert.Equal(t, bookingdomain.StatusCompleted, got.Status)

	march := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	bill, err := h.Bills.Get(ctx, p.Provider.ID, march)
	require.NoError(t, err)
	assert.EqualValues(t, 2000, bill.TotalAmount)
	assert.EqualValues(t, 200, bill.FeeAmount)
	assert.Equal(t, 1, h.Notifier.CountFor(notificationdomain.TemplateBillStatement, p.User.ID))
}

func TestStartRegistersEnabledJobs(t *testing.T) {
	useTestRegistry(t)
	h := testkit.New(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	cfg := DefaultConfig()
	cfg.EnabledJobs = []string{JobEnsureCycles, JobSuspendUnpaid}
	s := newHarnessScheduler(t, h, cfg)

	require.NoError(t, s.Start())
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	assert.Len(t, s.cron.Entries(), 2)
}

func TestStartRejectsBadSchedule(t *testing.T) {
	useTestRegistry(t)
	h := testkit.New(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))

	cfg := DefaultConfig()
	cfg.EnabledJobs = []string{JobEnsureCycles}
	cfg.Schedules[JobEnsureCycles] = "every tuesday"
	s := newHarnessScheduler(t, h, cfg)

	assert.Error(t, s.Start())
}
