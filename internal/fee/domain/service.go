package domain

import (
	"context"
	"time"

	accountdomain "github.com/smallbiznis/slotwise/internal/account/domain"
	bookingdomain "github.com/smallbiznis/slotwise/internal/booking/domain"
	platformsettingdomain "github.com/smallbiznis/slotwise/internal/platformsetting/domain"
)

type Totals struct {
	Month  time.Time
	Cutoff time.Time
	Total  int64
	Fee    int64
}

// Aggregator computes platform fees per provider and month.
type Aggregator interface {
	Compute(ctx context.Context, policy platformsettingdomain.FeePolicy, provider accountdomain.Provider, month time.Time) (Breakdown, error)
	// TotalsFor sums billable bookings with end in [month start, cutoff)
	// where cutoff = min(month end, now).
	TotalsFor(ctx context.Context, policy platformsettingdomain.FeePolicy, provider accountdomain.Provider, month time.Time) (Totals, error)
	BillableBookings(ctx context.Context, provider accountdomain.Provider, month time.Time) ([]bookingdomain.Booking, error)
	// AwaitingCompletion counts confirmed bookings that ended inside the
	// same window and have not been swept to completed yet.
	AwaitingCompletion(ctx context.Context, provider accountdomain.Provider, month time.Time) (int64, error)
}
