package domain

import (
	"time"

	billdomain "github.com/smallbiznis/slotwise/internal/bill/domain"
	platformsettingdomain "github.com/smallbiznis/slotwise/internal/platformsetting/domain"
)

// Strategy selects how amount due is derived for a cycle.
type Strategy string

const (
	// StrategyLive recomputes from bookings up to the cutoff and offsets the
	// provider's available credit balance.
	StrategyLive Strategy = "live"
	// StrategyFrozen reads the persisted bill and the cycle's committed credit.
	StrategyFrozen Strategy = "frozen"
)

// StrategyFor returns frozen only for a month before currentMonth that
// already has a bill.
func StrategyFor(month, currentMonth time.Time, bill *billdomain.Bill) Strategy {
	if bill != nil && month.Before(currentMonth) {
		return StrategyFrozen
	}
	return StrategyLive
}

type Inputs struct {
	Month  time.Time
	Cutoff time.Time
	Policy platformsettingdomain.FeePolicy

	// Live inputs.
	Total           int64
	CreditAvailable int64

	// Frozen input.
	Bill *billdomain.Bill

	CreditsApplied int64
}

type Breakdown struct {
	Strategy       Strategy  `json:"strategy"`
	Month          time.Time `json:"month"`
	Cutoff         time.Time `json:"cutoff"`
	Total          int64     `json:"total"`
	FeePercentage  float64   `json:"fee_percentage"`
	Fee            int64     `json:"fee"`
	CreditsApplied int64     `json:"credits_applied"`
	// CreditPending is available balance shown against a live fee but not
	// yet committed to the cycle.
	CreditPending int64 `json:"credit_pending"`
	AmountDue     int64 `json:"amount_due"`
}

func (s Strategy) Compute(in Inputs) Breakdown {
	if s == StrategyFrozen && in.Bill != nil {
		credits := in.CreditsApplied
		if credits > in.Bill.FeeAmount {
			credits = in.Bill.FeeAmount
		}
		return Breakdown{
			Strategy:       StrategyFrozen,
			Month:          in.Month,
			Cutoff:         in.Cutoff,
			Total:          in.Bill.TotalAmount,
			FeePercentage:  in.Bill.FeePercentage,
			Fee:            in.Bill.FeeAmount,
			CreditsApplied: credits,
			AmountDue:      in.Bill.FeeAmount - credits,
		}
	}

	fee := in.Policy.Fee(in.Total)
	remaining := nonNegative(fee - in.CreditsApplied)
	pending := in.CreditAvailable
	if pending > remaining {
		pending = remaining
	}
	pending = nonNegative(pending)
	return Breakdown{
		Strategy:       StrategyLive,
		Month:          in.Month,
		Cutoff:         in.Cutoff,
		Total:          in.Total,
		FeePercentage:  in.Policy.Percentage,
		Fee:            fee,
		CreditsApplied: in.CreditsApplied,
		CreditPending:  pending,
		AmountDue:      remaining - pending,
	}
}

func nonNegative(v int64) int64 {
	if v < 0 {
		return 0
	}
	return v
}
