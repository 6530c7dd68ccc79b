package guard

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/snowflake"
)

var ErrLockUnavailable = errors.New("booking_lock_unavailable")

// Locker serializes work on a single key. The returned release func must be
// called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// BookingKey is the lock key for booking-scoped mutations.
func BookingKey(bookingID snowflake.ID) string {
	return fmt.Sprintf("booking:lock:%s", bookingID.String())
}
