package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/smallbiznis/slotwise/internal/billingcycle/domain"
	"gorm.io/gorm"
)

type ApplyResult struct {
	Entry   BillCredit                      `json:"entry"`
	Applied int64                           `json:"applied"`
	Fee     int64                           `json:"fee"`
	Cycle   billingcycledomain.BillingCycle `json:"cycle"`
}

type Service interface {
	Grant(ctx context.Context, providerID snowflake.ID, amount int64, note string) (*BillCredit, error)
	ApplyToCurrentCycle(ctx context.Context, providerID snowflake.ID, amount int64) (*ApplyResult, error)
	ApplyForAccount(ctx context.Context, accountNumber string, amount int64) (*ApplyResult, error)
	Balance(ctx context.Context, providerID snowflake.ID) (Balance, error)
	Entries(ctx context.Context, providerID snowflake.ID) ([]BillCredit, error)

	// CommitAvailable moves up to fee - cycle.CreditsApplied of the
	// provider's available credit into the cycle. tx must hold the cycle
	// row lock. Returns the amount committed.
	CommitAvailable(ctx context.Context, tx *gorm.DB, cycle *billingcycledomain.BillingCycle, fee int64) (int64, error)
}

var (
	ErrInvalidAmount   = errors.New("invalid_credit_amount")
	ErrInvalidProvider = errors.New("invalid_provider")
)
