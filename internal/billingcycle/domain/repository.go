package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// Ensure inserts cycle unless a row for (account, month) exists, then
	// returns the stored row and whether this call created it.
	Ensure(ctx context.Context, db *gorm.DB, cycle *BillingCycle) (*BillingCycle, bool, error)
	Find(ctx context.Context, db *gorm.DB, accountNumber string, month time.Time, forUpdate bool) (*BillingCycle, error)
	ListForMonth(ctx context.Context, db *gorm.DB, month time.Time, unpaidOnly bool) ([]BillingCycle, error)
	// MarkPaid flips an unpaid row to paid and reports whether it did.
	MarkPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paidAt time.Time) (bool, error)
	SetPaid(ctx context.Context, db *gorm.DB, id snowflake.ID, paid bool, paidAt *time.Time, now time.Time) error
	AddCreditsApplied(ctx context.Context, db *gorm.DB, id snowflake.ID, delta int64, now time.Time) error
	SumCreditsApplied(ctx context.Context, db *gorm.DB, providerID snowflake.ID) (int64, error)
}
