// Package repository provides typed row access for tables keyed by a
// snowflake id. Domain packages with richer queries keep their own
// repositories; this covers plain lookups and patches.
package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/slotwise/pkg/db"
	"github.com/smallbiznis/slotwise/pkg/db/option"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Errors are the domain sentinels a Table reports instead of gorm errors.
// A nil field falls back to the underlying gorm error.
type Errors struct {
	NotFound error
	Conflict error
}

type Table[T any] interface {
	// Tx binds the table to an open transaction.
	Tx(tx *gorm.DB) Table[T]
	Get(ctx context.Context, where *T, opts ...option.QueryOption) (*T, error)
	List(ctx context.Context, where *T, opts ...option.QueryOption) ([]T, error)
	Insert(ctx context.Context, row *T) error
	// InsertIgnore inserts row unless it collides on the given columns.
	InsertIgnore(ctx context.Context, row *T, columns ...string) error
	// Patch updates the listed columns of one row. A missing row is NotFound.
	Patch(ctx context.Context, id snowflake.ID, fields map[string]any) error
}

type table[T any] struct {
	db   *gorm.DB
	errs Errors
}

func NewTable[T any](conn *gorm.DB, errs Errors) Table[T] {
	return &table[T]{db: conn, errs: errs}
}

func (t *table[T]) Tx(tx *gorm.DB) Table[T] {
	return &table[T]{db: tx, errs: t.errs}
}

func (t *table[T]) scope(ctx context.Context, where *T, opts []option.QueryOption) *gorm.DB {
	q := t.db.WithContext(ctx).Model(new(T))
	if where != nil {
		q = q.Where(where)
	}
	for _, opt := range opts {
		q = opt.Apply(q)
	}
	return q
}

func (t *table[T]) Get(ctx context.Context, where *T, opts ...option.QueryOption) (*T, error) {
	var row T
	err := t.scope(ctx, where, opts).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) && t.errs.NotFound != nil {
		return nil, t.errs.NotFound
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (t *table[T]) List(ctx context.Context, where *T, opts ...option.QueryOption) ([]T, error) {
	rows := make([]T, 0)
	if err := t.scope(ctx, where, opts).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (t *table[T]) Insert(ctx context.Context, row *T) error {
	err := t.db.WithContext(ctx).Create(row).Error
	if err != nil && t.errs.Conflict != nil && db.IsDuplicateKeyErr(err) {
		return t.errs.Conflict
	}
	return err
}

func (t *table[T]) InsertIgnore(ctx context.Context, row *T, columns ...string) error {
	target := make([]clause.Column, 0, len(columns))
	for _, name := range columns {
		target = append(target, clause.Column{Name: name})
	}
	err := t.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: target, DoNothing: true}).
		Create(row).Error
	if db.IsDuplicateKeyErr(err) {
		return nil
	}
	return err
}

func (t *table[T]) Patch(ctx context.Context, id snowflake.ID, fields map[string]any) error {
	res := t.db.WithContext(ctx).Model(new(T)).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 && t.errs.NotFound != nil {
		return t.errs.NotFound
	}
	return nil
}
