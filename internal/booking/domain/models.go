package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// ActorRole identifies which side of a booking performed an action.
type ActorRole string

const (
	ActorClient   ActorRole = "client"
	ActorProvider ActorRole = "provider"
)

func (r ActorRole) Valid() bool {
	return r == ActorClient || r == ActorProvider
}

// Booking is a reserved time slot on a service. Status only changes through
// the transitions in status.go.
type Booking struct {
	ID              snowflake.ID  `gorm:"primaryKey;autoIncrement:false" json:"id"`
	CustomerID      snowflake.ID  `gorm:"not null;index" json:"customer_id"`
	ServiceID       snowflake.ID  `gorm:"not null;index:idx_bookings_service_window,priority:1" json:"service_id"`
	StartTime       time.Time     `gorm:"not null;index:idx_bookings_service_window,priority:2" json:"start_time"`
	EndTime         time.Time     `gorm:"not null;index" json:"end_time"`
	Status          Status        `gorm:"type:varchar(20);not null;index" json:"status"`
	CancelledByID   *snowflake.ID `json:"cancelled_by_id,omitempty"`
	CancelledByRole *ActorRole    `gorm:"type:varchar(20)" json:"cancelled_by_role,omitempty"`
	CancelledAt     *time.Time    `json:"cancelled_at,omitempty"`
	CompletedAt     *time.Time    `json:"completed_at,omitempty"`
	ReminderSentAt  *time.Time    `json:"reminder_sent_at,omitempty"`
	CreatedAt       time.Time     `gorm:"not null" json:"created_at"`
	UpdatedAt       time.Time     `gorm:"not null" json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

// Overlaps reports whether [start, end) intersects the booking's interval.
func (b Booking) Overlaps(start, end time.Time) bool {
	return b.StartTime.Before(end) && b.EndTime.After(start)
}

// Billable reports whether the booking counts toward a fee computed at cutoff.
func (b Booking) Billable(cutoff time.Time) bool {
	return b.Status == StatusCompleted && b.CancelledAt == nil && !b.EndTime.After(cutoff)
}
