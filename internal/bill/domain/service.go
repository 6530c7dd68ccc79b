package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type GenerateResult struct {
	Month    time.Time `json:"month"`
	Created  int       `json:"created"`
	Existing int       `json:"existing"`
	Skipped  int       `json:"skipped"`
	Deferred int       `json:"deferred"`
	Emailed  int       `json:"emailed"`
}

type Service interface {
	// GenerateForMonth freezes a bill for every provider with billable
	// activity in month. Existing bills are never touched; statements that
	// failed to send are retried.
	GenerateForMonth(ctx context.Context, month time.Time) (GenerateResult, error)
	// RefreshForBooking generates the provider's bill for month once the
	// month has closed and no bill exists yet.
	RefreshForBooking(ctx context.Context, providerID snowflake.ID, month time.Time) error
	Get(ctx context.Context, providerID snowflake.ID, month time.Time) (*Bill, error)
	ListForProvider(ctx context.Context, providerID snowflake.ID) ([]Bill, error)
}

var ErrBillNotFound = errors.New("bill_not_found")
