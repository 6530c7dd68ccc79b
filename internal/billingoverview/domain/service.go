package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	feedomain "github.com/smallbiznis/slotwise/internal/fee/domain"
)

// BillingRow is one provider's standing for a month as shown to admins.
type BillingRow struct {
	ProviderID    snowflake.ID `json:"provider_id"`
	AccountNumber string       `json:"account_number"`
	ProviderName  string       `json:"provider_name"`
	ProviderEmail string       `json:"provider_email"`
	IsLocked      bool         `json:"is_locked"`
	IsSuspended   bool         `json:"is_suspended"`

	Month          time.Time          `json:"month"`
	Strategy       feedomain.Strategy `json:"strategy"`
	Total          int64              `json:"total"`
	FeePercentage  float64            `json:"fee_percentage"`
	Fee            int64              `json:"fee"`
	CreditsApplied int64              `json:"credits_applied"`
	CreditPending  int64              `json:"credit_pending"`
	AmountDue      int64              `json:"amount_due"`

	IsPaid  bool          `json:"is_paid"`
	PaidAt  *time.Time    `json:"paid_at,omitempty"`
	BillID  *snowflake.ID `json:"bill_id,omitempty"`
	DueDate *time.Time    `json:"due_date,omitempty"`
}

type Service interface {
	ListBillingRows(ctx context.Context, month time.Time) ([]BillingRow, error)
}
