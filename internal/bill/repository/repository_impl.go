package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/slotwise/internal/bill/domain"
	"github.com/smallbiznis/slotwise/internal/clock"
	"github.com/smallbiznis/slotwise/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) InsertIfAbsent(ctx context.Context, conn *gorm.DB, bill *domain.Bill) (bool, error) {
	bill.Month = clock.NormalizeMonth(bill.Month)
	res := conn.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "provider_id"}, {Name: "month"}},
			DoNothing: true,
		}).
		Create(bill)
	if res.Error != nil {
		if db.IsDuplicateKeyErr(res.Error) {
			return false, nil
		}
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repo) Find(ctx context.Context, conn *gorm.DB, providerID snowflake.ID, month time.Time) (*domain.Bill, error) {
	var rows []domain.Bill
	err := conn.WithContext(ctx).
		Where("provider_id = ? AND month = ?", providerID, clock.NormalizeMonth(month)).
		Limit(1).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

func (r *repo) ListForProvider(ctx context.Context, conn *gorm.DB, providerID snowflake.ID) ([]domain.Bill, error) {
	var bills []domain.Bill
	err := conn.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("month DESC").
		Find(&bills).Error
	return bills, err
}

func (r *repo) ListForMonth(ctx context.Context, conn *gorm.DB, month time.Time) ([]domain.Bill, error) {
	var bills []domain.Bill
	err := conn.WithContext(ctx).
		Where("month = ?", clock.NormalizeMonth(month)).
		Order("provider_id").
		Find(&bills).Error
	return bills, err
}

func (r *repo) ListUnsent(ctx context.Context, conn *gorm.DB, month time.Time) ([]domain.Bill, error) {
	var bills []domain.Bill
	err := conn.WithContext(ctx).
		Where("month = ? AND emailed_at IS NULL", clock.NormalizeMonth(month)).
		Order("provider_id").
		Find(&bills).Error
	return bills, err
}

func (r *repo) MarkEmailed(ctx context.Context, conn *gorm.DB, id snowflake.ID, at time.Time) error {
	return conn.WithContext(ctx).
		Model(&domain.Bill{}).
		Where("id = ? AND emailed_at IS NULL", id).
		Update("emailed_at", at).Error
}
