package clock

import "time"

// Clock is the single source of "now" for the booking and billing code.
// Calendar arithmetic (month boundaries, day-of-month) always happens in
// Location; persisted instants are UTC.
type Clock interface {
	Now() time.Time
	Location() *time.Location
}

type SystemClock struct {
	loc *time.Location
}

func NewSystemClock(loc *time.Location) *SystemClock {
	if loc == nil {
		loc = time.UTC
	}
	return &SystemClock{loc: loc}
}

func (c *SystemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *SystemClock) Location() *time.Location {
	return c.loc
}

// FixedZone builds a DST-free location from a signed UTC offset.
func FixedZone(name string, offset time.Duration) *time.Location {
	return time.FixedZone(name, int(offset/time.Second))
}
