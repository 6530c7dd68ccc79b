package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/slotwise/internal/clock"
	"github.com/smallbiznis/slotwise/internal/ledger/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *domain.BillCredit) error {
	return db.WithContext(ctx).Create(entry).Error
}

func (r *repo) SumGranted(ctx context.Context, db *gorm.DB, providerID snowflake.ID) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.BillCredit{}).
		Where("provider_id = ?", providerID).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *repo) SumLinkedApplied(ctx context.Context, db *gorm.DB, providerID snowflake.ID, month time.Time) (int64, error) {
	var total int64
	err := db.WithContext(ctx).
		Model(&domain.BillCredit{}).
		Where("provider_id = ? AND cycle_month = ?", providerID, clock.NormalizeMonth(month)).
		Select("COALESCE(SUM(applied_amount), 0)").
		Scan(&total).Error
	return total, err
}

func (r *repo) List(ctx context.Context, db *gorm.DB, providerID snowflake.ID) ([]domain.BillCredit, error) {
	var entries []domain.BillCredit
	err := db.WithContext(ctx).
		Where("provider_id = ?", providerID).
		Order("created_at, id").
		Find(&entries).Error
	return entries, err
}
