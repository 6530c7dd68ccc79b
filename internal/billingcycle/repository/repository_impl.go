package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/slotwise/internal/billingcycle/domain"
	"github.com/smallbiznis/slotwise/internal/clock"
	"github.com/smallbiznis/slotwise/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Ensure(ctx context.Context, conn *gorm.DB, cycle *domain.BillingCycle) (*domain.BillingCycle, bool, error) {
	cycle.CycleMonth = clock.NormalizeMonth(cycle.CycleMonth)
	res := conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "account_number"}, {Name: "cycle_month"}},
			DoNothing: true,
		}).
		Create(cycle)
	if res.Error != nil && !db.IsDuplicateKeyErr(res.Error) {
		return nil, false, res.Error
	}
	created := res.Error == nil && res.RowsAffected == 1

	stored, err := r.Find(ctx, conn, cycle.AccountNumber, cycle.CycleMonth, false)
	if err != nil {
		return nil, false, err
	}
	if stored == nil {
		return nil, false, domain.ErrCycleNotFound
	}
	return stored, created, nil
}

func (r *repo) Find(ctx context.Context, conn *gorm.DB, accountNumber string, month time.Time, forUpdate bool) (*domain.BillingCycle, error) {
	stmt := conn.WithContext(ctx).
		Where("account_number = ? AND cycle_month = ?", accountNumber, clock.NormalizeMonth(month))
	if forUpdate {
		stmt = stmt.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}

	var rows []domain.BillingCycle
	if err := stmt.Limit(1).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) ListForMonth(ctx context.Context, conn *gorm.DB, month time.Time, unpaidOnly bool) ([]domain.BillingCycle, error) {
	stmt := conn.WithContext(ctx).
		Where("cycle_month = ?", clock.NormalizeMonth(month))
	if unpaidOnly {
		stmt = stmt.Where("is_paid = ?", false)
	}
	var cycles []domain.BillingCycle
	if err := stmt.Order("account_number").Find(&cycles).Error; err != nil {
		return nil, err
	}
	return cycles, nil
}

func (r *repo) MarkPaid(ctx context.Context, conn *gorm.DB, id snowflake.ID, paidAt time.Time) (bool, error) {
	res := conn.WithContext(ctx).
		Model(&domain.BillingCycle{}).
		Where("id = ? AND is_paid = ?", id, false).
		Updates(map[string]any{
			"is_paid":    true,
			"paid_at":    paidAt,
			"updated_at": paidAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) SetPaid(ctx context.Context, conn *gorm.DB, id snowflake.ID, paid bool, paidAt *time.Time, now time.Time) error {
	return conn.WithContext(ctx).
		Model(&domain.BillingCycle{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"is_paid":    paid,
			"paid_at":    paidAt,
			"updated_at": now,
		}).Error
}

func (r *repo) AddCreditsApplied(ctx context.Context, conn *gorm.DB, id snowflake.ID, delta int64, now time.Time) error {
	if delta < 0 {
		return domain.ErrCreditsOverspent
	}
	if delta == 0 {
		return nil
	}
	return conn.WithContext(ctx).
		Model(&domain.BillingCycle{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"credits_applied": gorm.Expr("credits_applied + ?", delta),
			"updated_at":      now,
		}).Error
}

// SumCreditsApplied counts a frozen month's credit only up to its bill fee.
// credits_applied only grows, so a fee lowered after credit was applied
// leaves the excess on the cycle row; it stays available to the provider.
func (r *repo) SumCreditsApplied(ctx context.Context, conn *gorm.DB, providerID snowflake.ID) (int64, error) {
	var total int64
	err := conn.WithContext(ctx).
		Model(&domain.BillingCycle{}).
		Joins("LEFT JOIN bills ON bills.provider_id = billing_cycles.provider_id AND bills.month = billing_cycles.cycle_month").
		Where("billing_cycles.provider_id = ?", providerID).
		Select(`COALESCE(SUM(CASE
			WHEN bills.id IS NOT NULL AND bills.fee_amount < billing_cycles.credits_applied THEN bills.fee_amount
			ELSE billing_cycles.credits_applied
		END), 0)`).
		Scan(&total).Error
	return total, err
}
