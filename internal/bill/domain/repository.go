package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	// InsertIfAbsent inserts bill unless (provider, month) already has one
	// and reports whether this call created the row.
	InsertIfAbsent(ctx context.Context, db *gorm.DB, bill *Bill) (bool, error)
	Find(ctx context.Context, db *gorm.DB, providerID snowflake.ID, month time.Time) (*Bill, error)
	ListForProvider(ctx context.Context, db *gorm.DB, providerID snowflake.ID) ([]Bill, error)
	ListForMonth(ctx context.Context, db *gorm.DB, month time.Time) ([]Bill, error)
	ListUnsent(ctx context.Context, db *gorm.DB, month time.Time) ([]Bill, error)
	MarkEmailed(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}
