package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

var gyt = FixedZone("GYT", -4*time.Hour)

func TestCycleMonthUsesBusinessLocation(t *testing.T) {
	// 2025-02-01 02:00 UTC is still January 31st in UTC-4.
	instant := time.Date(2025, 2, 1, 2, 0, 0, 0, time.UTC)

	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), CycleMonth(instant, gyt))
	assert.Equal(t, 31, DayOfMonth(instant, gyt))
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), CycleMonth(instant, time.UTC))
}

func TestMonthBounds(t *testing.T) {
	start, end := MonthBounds(time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC), gyt)

	assert.Equal(t, time.Date(2025, 12, 1, 4, 0, 0, 0, time.UTC), start.UTC())
	assert.Equal(t, time.Date(2026, 1, 1, 4, 0, 0, 0, time.UTC), end.UTC())
}

func TestPreviousMonthAndKeys(t *testing.T) {
	month := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC), PreviousMonth(month))
	assert.Equal(t, "2025-01", MonthKey(month))

	parsed, err := ParseMonthKey("2025-03")
	assert.NoError(t, err)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), parsed)

	_, err = ParseMonthKey("03/2025")
	assert.Error(t, err)
}

func TestFakeClockAdvance(t *testing.T) {
	c := NewFakeClock(time.Date(2025, 1, 31, 23, 30, 0, 0, gyt), gyt)
	c.Advance(time.Hour)

	assert.Equal(t, time.Date(2025, 2, 1, 0, 30, 0, 0, gyt), c.Now())
	assert.Equal(t, 1, DayOfMonth(c.Now(), c.Location()))
}
