package clock

import (
	"sync"
	"time"
)

type FakeClock struct {
	mu  sync.Mutex
	now time.Time
	loc *time.Location
}

func NewFakeClock(t time.Time, loc *time.Location) *FakeClock {
	if loc == nil {
		loc = time.UTC
	}
	return &FakeClock{now: t.In(loc), loc: loc}
}

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Location() *time.Location {
	return c.loc
}

func (c *FakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t.In(c.loc)
	c.mu.Unlock()
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
