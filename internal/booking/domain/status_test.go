package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var allStatuses = []Status{StatusPending, StatusConfirmed, StatusCompleted, StatusCancelled}

func TestTransitionTable(t *testing.T) {
	legal := map[[2]Status]bool{
		{StatusPending, StatusConfirmed}:   true,
		{StatusPending, StatusCancelled}:   true,
		{StatusConfirmed, StatusCompleted}: true,
		{StatusConfirmed, StatusCancelled}: true,
	}

	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := legal[[2]Status{from, to}]
			assert.Equal(t, want, from.CanTransitionTo(to), "%s -> %s", from, to)
			if want {
				assert.NoError(t, Transition(from, to))
			} else {
				assert.Error(t, Transition(from, to))
			}
		}
	}
}

func TestTerminalStatesAreAbsorbing(t *testing.T) {
	for _, to := range allStatuses {
		assert.ErrorIs(t, Transition(StatusCompleted, to), ErrBookingCompleted)
		assert.ErrorIs(t, Transition(StatusCancelled, to), ErrBookingCancelled)
	}
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusConfirmed.Terminal())

	assert.ErrorIs(t, Transition(StatusPending, StatusCompleted), ErrIllegalTransition)
	assert.ErrorIs(t, Transition(StatusConfirmed, StatusPending), ErrIllegalTransition)
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus("confirmed")
	assert.NoError(t, err)
	assert.Equal(t, StatusConfirmed, status)

	_, err = ParseStatus("CONFIRMED")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestOverlapIsHalfOpen(t *testing.T) {
	base := time.Date(2025, 3, 10, 14, 0, 0, 0, time.UTC)
	b := Booking{StartTime: base, EndTime: base.Add(time.Hour)}

	assert.True(t, b.Overlaps(base.Add(30*time.Minute), base.Add(90*time.Minute)))
	assert.True(t, b.Overlaps(base.Add(-30*time.Minute), base.Add(10*time.Minute)))
	assert.True(t, b.Overlaps(base.Add(10*time.Minute), base.Add(20*time.Minute)))
	assert.False(t, b.Overlaps(base.Add(time.Hour), base.Add(2*time.Hour)))
	assert.False(t, b.Overlaps(base.Add(-time.Hour), base))
}

func TestBillable(t *testing.T) {
	end := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	cancelledAt := end.Add(-2 * time.Hour)

	assert.True(t, Booking{Status: StatusCompleted, EndTime: end}.Billable(end))
	assert.False(t, Booking{Status: StatusCompleted, EndTime: end}.Billable(end.Add(-time.Second)))
	assert.False(t, Booking{Status: StatusConfirmed, EndTime: end}.Billable(end))
	assert.False(t, Booking{Status: StatusCompleted, EndTime: end, CancelledAt: &cancelledAt}.Billable(end))
}

func TestErrorKinds(t *testing.T) {
	assert.True(t, IsValidation(ErrSlotUnavailable))
	assert.True(t, IsPermission(ErrProviderLocked))
	assert.True(t, IsPermanentState(ErrBookingCompleted))
	assert.False(t, IsPermission(ErrBookingCompleted))
	assert.True(t, IsNotFound(ErrBookingNotFound))
}
