package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *BillCredit) error
	SumGranted(ctx context.Context, db *gorm.DB, providerID snowflake.ID) (int64, error)
	// SumLinkedApplied totals AppliedAmount of entries linked to month.
	SumLinkedApplied(ctx context.Context, db *gorm.DB, providerID snowflake.ID, month time.Time) (int64, error)
	List(ctx context.Context, db *gorm.DB, providerID snowflake.ID) ([]BillCredit, error)
}
