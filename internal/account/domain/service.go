package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type RegisterUserRequest struct {
	Email    string
	FullName string
	Phone    string
	Role     Role
}

type CreateOfferingRequest struct {
	ProviderID           snowflake.ID
	Name                 string
	Description          string
	Price                int64
	DurationMinutes      int
	RequiresConfirmation bool
}

type Service interface {
	RegisterUser(ctx context.Context, req RegisterUserRequest) (*User, error)
	// RegisterProvider returns the provider for a provider-role user,
	// creating it with a fresh account number on first call.
	RegisterProvider(ctx context.Context, userID snowflake.ID) (*Provider, error)
	CreateOffering(ctx context.Context, req CreateOfferingRequest) (*Offering, error)
	ArchiveOffering(ctx context.Context, offeringID snowflake.ID) error

	GetUser(ctx context.Context, userID snowflake.ID) (*User, error)
	GetProvider(ctx context.Context, providerID snowflake.ID) (*Provider, error)
	GetProviderByUser(ctx context.Context, userID snowflake.ID) (*Provider, error)
	GetProviderByAccount(ctx context.Context, accountNumber string) (*Provider, error)
	GetProviderProfile(ctx context.Context, providerID snowflake.ID) (*ProviderProfile, error)
	GetOffering(ctx context.Context, offeringID snowflake.ID) (*Offering, error)
	ListProviders(ctx context.Context) ([]Provider, error)

	SetLockState(ctx context.Context, providerID snowflake.ID, locked bool) (*Provider, error)
	SetSuspension(ctx context.Context, userID snowflake.ID, suspended bool) (*User, error)
	// Reactivate clears both the provider lock and the user suspension.
	// Bills and cycles are left untouched.
	Reactivate(ctx context.Context, providerID snowflake.ID) (*ProviderProfile, error)
}

var (
	ErrUserNotFound     = errors.New("user_not_found")
	ErrProviderNotFound = errors.New("provider_not_found")
	ErrOfferingNotFound = errors.New("service_not_found")
	ErrInvalidEmail     = errors.New("invalid_email")
	ErrInvalidName      = errors.New("invalid_name")
	ErrInvalidRole      = errors.New("invalid_role")
	ErrInvalidPrice     = errors.New("invalid_price")
	ErrInvalidDuration  = errors.New("invalid_duration")
	ErrNotProviderUser  = errors.New("user_is_not_a_provider")
	ErrEmailTaken       = errors.New("email_taken")
)
