package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	Ensure(ctx context.Context, accountNumber string, month time.Time) (*BillingCycle, error)
	// EnsureForMonth ensures a cycle for every provider and returns how many
	// rows were created.
	EnsureForMonth(ctx context.Context, month time.Time) (int, error)
	// MarkPaid is idempotent; only the unpaid->paid transition notifies.
	MarkPaid(ctx context.Context, accountNumber string, month time.Time) (*BillingCycle, error)
	SetPaidState(ctx context.Context, providerID snowflake.ID, month time.Time, paid bool) (*BillingCycle, error)
	Get(ctx context.Context, accountNumber string, month time.Time) (*BillingCycle, error)
	ListForMonth(ctx context.Context, month time.Time) ([]BillingCycle, error)
}

var (
	ErrCycleNotFound    = errors.New("billing_cycle_not_found")
	ErrInvalidAccount   = errors.New("invalid_account_number")
	ErrCreditsOverspent = errors.New("credits_applied_negative")
)
