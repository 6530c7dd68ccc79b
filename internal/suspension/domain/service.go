package domain

import (
	"context"
	"time"
)

type Service interface {
	// SuspendUnpaid suspends the provider user of every unpaid cycle for the
	// cycle month of reference, once reference is on or past the cutoff day.
	// Returns how many users were newly suspended.
	SuspendUnpaid(ctx context.Context, reference time.Time) (int, error)
}
