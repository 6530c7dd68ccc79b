package domain

import (
	"context"
	"errors"
)

type Service interface {
	// Policy returns the persisted fee policy, or the configured default when
	// no row exists yet.
	Policy(ctx context.Context) (FeePolicy, error)
	Update(ctx context.Context, percentage float64) (FeePolicy, error)
}

var ErrInvalidPercentage = errors.New("invalid_fee_percentage")
