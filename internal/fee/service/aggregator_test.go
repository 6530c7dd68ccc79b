package service_test

import (
	"context"
	"testing"
	"time"

	bookingdomain "github.com/smallbiznis/slotwise/internal/booking/domain"
	"github.com/smallbiznis/slotwise/internal/testkit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	february = time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	march    = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
)

func TestTotalsExcludeBookingEndingAtCutoff(t *testing.T) {
	ctx := context.Background()
	h := testkit.New(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	h.Clock.Set(h.Local(2024, 3, 15, 12, 0))
	p := h.SeedProvider(t, "barber@example.com", 1000, 60)
	customer := h.SeedCustomer(t, "client@example.com")

	h.InsertBooking(t, customer.ID, p.Offering.ID, h.Local(2024, 3, 15, 9, 0), time.Hour, bookingdomain.StatusCompleted)
	h.InsertBooking(t, customer.ID, p.Offering.ID, h.Local(2024, 3, 15, 11, 0), time.Hour, bookingdomain.StatusCompleted)

	policy, err := h.Settings.Policy(ctx)
	require.NoError(t, err)

	totals, err := h.Aggregator.TotalsFor(ctx, policy, p.Provider, march)
	require.NoError(t, err)
	assert.True(t, totals.Cutoff.Equal(h.Clock.Now()))
	assert.EqualValues(t, 1000, totals.Total)
	assert.EqualValues(t, 100, totals.Fee)

	bookings, err := h.Aggregator.BillableBookings(ctx, p.Provider, march)
	require.NoError(t, err)
	require.Len(t, bookings, 1)
	assert.True(t, bookings[0].EndTime.Equal(h.Local(2024, 3, 15, 10, 0)))

	// One minute later the second booking is inside the window.
	h.Clock.Advance(time.Minute)
	totals, err = h.Aggregator.TotalsFor(ctx, policy, p.Provider, march)
	require.NoError(t, err)
	assert.EqualValues(t, 2000, totals.Total)

	breakdown, err := h.Aggregator.Compute(ctx, policy, p.Provider, march)
	require.NoError(t, err)
	assert.EqualValues(t, 2000, breakdown.Total)
	assert.EqualValues(t, 200, breakdown.Fee)
	assert.EqualValues(t, 200, breakdown.AmountDue)
}

func TestBookingEndingAtMonthStartBelongsToThatMonth(t *testing.T) {
	ctx := context.Background()
	h := testkit.New(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	h.Clock.Set(h.Local(2024, 3, 15, 12, 0))
	p := h.SeedProvider(t, "barber@example.com", 1000, 60)
	customer := h.SeedCustomer(t, "client@example.com")

	// 23:00 on Feb 29 plus one hour ends exactly at 00:00 on Mar 1.
	h.InsertBooking(t, customer.ID, p.Offering.ID, h.Local(2024, 2, 29, 23, 0), time.Hour, bookingdomain.StatusCompleted)

	policy, err := h.Settings.Policy(ctx)
	require.NoError(t, err)

	inMarch, err := h.Aggregator.TotalsFor(ctx, policy, p.Provider, march)
	require.NoError(t, err)
	assert.EqualValues(t, 1000, inMarch.Total)

	inFebruary, err := h.Aggregator.TotalsFor(ctx, policy, p.Provider, february)
	require.NoError(t, err)
	assert.Zero(t, inFebruary.Total)
	assert.True(t, inFebruary.Cutoff.Equal(h.Local(2024, 3, 1, 0, 0)))
}

func TestAwaitingCompletionCountsEndedConfirmedBookings(t *testing.T) {
	ctx := context.Background()
	h := testkit.New(t, time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC))
	h.Clock.Set(h.Local(2024, 3, 15, 12, 0))
	p := h.SeedProvider(t, "barber@example.com", 1000, 60)
	customer := h.SeedCustomer(t, "client@example.com")

	h.InsertBooking(t, customer.ID, p.Offering.ID, h.Local(2024, 3, 15, 9, 0), time.Hour, bookingdomain.StatusConfirmed)
	h.InsertBooking(t, customer.ID, p.Offering.ID, h.Local(2024, 3, 15, 11, 0), time.Hour, bookingdomain.StatusConfirmed)
	h.InsertBooking(t, customer.ID, p.Offering.ID, h.Local(2024, 3, 14, 9, 0), time.Hour, bookingdomain.StatusCancelled)

	count, err := h.Aggregator.AwaitingCompletion(ctx, p.Provider, march)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	policy, err := h.Settings.Policy(ctx)
	require.NoError(t, err)
	totals, err := h.Aggregator.TotalsFor(ctx, policy, p.Provider, march)
	require.NoError(t, err)
	assert.Zero(t, totals.Total)
}
