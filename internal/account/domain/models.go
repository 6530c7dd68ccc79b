package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type Role string

const (
	RoleClient   Role = "client"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleProvider, RoleAdmin:
		return true
	default:
		return false
	}
}

// User is any person on the marketplace. IsSuspended is the account-wide
// block driven by unpaid billing cycles.
type User struct {
	ID          snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	Email       string       `gorm:"type:varchar(255);not null;uniqueIndex"`
	FullName    string       `gorm:"type:varchar(255);not null"`
	Phone       string       `gorm:"type:varchar(32)"`
	PushToken   string       `gorm:"type:varchar(255)"`
	Role        Role         `gorm:"type:varchar(20);not null"`
	IsSuspended bool         `gorm:"not null;default:false"`
	CreatedAt   time.Time    `gorm:"not null"`
	UpdatedAt   time.Time    `gorm:"not null"`
}

func (User) TableName() string { return "users" }

// Provider is the billing identity of a provider user. IsLocked only gates
// booking confirmation; it is independent of the user's suspension.
type Provider struct {
	ID            snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	UserID        snowflake.ID `gorm:"not null;uniqueIndex"`
	AccountNumber string       `gorm:"type:varchar(32);not null;uniqueIndex"`
	IsLocked      bool         `gorm:"not null;default:false"`
	LockedAt      *time.Time
	CreatedAt     time.Time `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (Provider) TableName() string { return "providers" }

// Offering is a bookable service. Archived offerings stay in place
// (IsActive=false) so booking history keeps its price.
type Offering struct {
	ID                   snowflake.ID `gorm:"primaryKey;autoIncrement:false"`
	ProviderID           snowflake.ID `gorm:"not null;index"`
	Name                 string       `gorm:"type:varchar(255);not null"`
	Description          string       `gorm:"type:text"`
	Price                int64        `gorm:"not null"`
	DurationMinutes      int          `gorm:"not null"`
	IsActive             bool         `gorm:"not null"`
	RequiresConfirmation bool         `gorm:"not null;default:false"`
	CreatedAt            time.Time    `gorm:"not null"`
	UpdatedAt            time.Time    `gorm:"not null"`
}

func (Offering) TableName() string { return "services" }

func (o Offering) Duration() time.Duration {
	return time.Duration(o.DurationMinutes) * time.Minute
}

// ProviderProfile joins a provider with its user for notifications and listings.
type ProviderProfile struct {
	Provider Provider
	User     User
}
