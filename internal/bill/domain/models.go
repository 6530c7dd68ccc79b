package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Bill is the frozen fee statement for one provider and month. Only the
// paid flag and the emailed marker change after insert.
type Bill struct {
	ID            snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ProviderID    snowflake.ID `gorm:"not null;uniqueIndex:ux_bills_provider_month,priority:1" json:"provider_id"`
	Month         time.Time    `gorm:"type:date;not null;uniqueIndex:ux_bills_provider_month,priority:2;index" json:"month"`
	TotalAmount   int64        `gorm:"not null" json:"total_amount"`
	FeeAmount     int64        `gorm:"not null" json:"fee_amount"`
	FeePercentage float64      `gorm:"not null" json:"fee_percentage"`
	DueDate       time.Time    `gorm:"not null" json:"due_date"`
	IsPaid        bool         `gorm:"not null;default:false" json:"is_paid"`
	PaidAt        *time.Time   `json:"paid_at,omitempty"`
	EmailedAt     *time.Time   `json:"emailed_at,omitempty"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
}

func (Bill) TableName() string { return "bills" }

// DueDate is the last minute of dueDay in the month after month, in loc.
func DueDate(month time.Time, dueDay int, loc *time.Location) time.Time {
	next := time.Date(month.Year(), month.Month(), 1, 0, 0, 0, 0, loc).AddDate(0, 1, 0)
	return time.Date(next.Year(), next.Month(), dueDay, 23, 59, 0, 0, loc).UTC()
}
