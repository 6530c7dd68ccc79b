package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// BillingCycle tracks payment and applied credit for one provider account
// in one calendar month. CycleMonth is the first day of the month.
type BillingCycle struct {
	ID             snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ProviderID     snowflake.ID `gorm:"not null;index" json:"provider_id"`
	AccountNumber  string       `gorm:"type:varchar(32);not null;uniqueIndex:ux_billing_cycles_account_month,priority:1" json:"account_number"`
	CycleMonth     time.Time    `gorm:"type:date;not null;uniqueIndex:ux_billing_cycles_account_month,priority:2;index" json:"cycle_month"`
	IsPaid         bool         `gorm:"not null;default:false" json:"is_paid"`
	PaidAt         *time.Time   `json:"paid_at,omitempty"`
	CreditsApplied int64        `gorm:"not null;default:0" json:"credits_applied"`
	CreatedAt      time.Time    `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time    `gorm:"not null" json:"updated_at"`
}

// TableName sets the database table name.
func (BillingCycle) TableName() string { return "billing_cycles" }
