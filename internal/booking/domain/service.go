package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

type CreateBookingRequest struct {
	CustomerID snowflake.ID
	ServiceID  snowflake.ID
	StartTime  time.Time
}

type CancelBookingRequest struct {
	BookingID snowflake.ID
	ActorID   snowflake.ID
	Role      ActorRole
}

type ConfirmBookingRequest struct {
	BookingID      snowflake.ID
	ProviderUserID snowflake.ID
}

type Service interface {
	Create(ctx context.Context, req CreateBookingRequest) (*Booking, error)
	Confirm(ctx context.Context, req ConfirmBookingRequest) (*Booking, error)
	Cancel(ctx context.Context, req CancelBookingRequest) (*Booking, error)
	// AutoComplete moves confirmed bookings that ended at or before asOf to
	// completed and returns how many rows moved.
	AutoComplete(ctx context.Context, asOf time.Time) (int64, error)
	SendUpcomingReminders(ctx context.Context, now time.Time) (int, error)

	Get(ctx context.Context, bookingID snowflake.ID) (*Booking, error)
	ListForCustomer(ctx context.Context, customerID snowflake.ID) ([]Booking, error)
	ListForProvider(ctx context.Context, providerID snowflake.ID) ([]Booking, error)
}

// Validation errors.
var (
	ErrServiceNotFound  = errors.New("service_not_found")
	ErrStartNotInFuture = errors.New("start_time_not_in_future")
	ErrSlotUnavailable  = errors.New("slot_unavailable")
	ErrInvalidStatus    = errors.New("invalid_status")
	ErrInvalidActor     = errors.New("invalid_actor")
)

// Permission and compliance errors.
var (
	ErrServiceInactive   = errors.New("service_inactive")
	ErrProviderSuspended = errors.New("provider_suspended")
	ErrProviderLocked    = errors.New("provider_locked")
	ErrNotParticipant    = errors.New("not_booking_participant")
)

// Permanent-state errors.
var (
	ErrBookingCompleted  = errors.New("booking_completed")
	ErrBookingCancelled  = errors.New("booking_cancelled")
	ErrIllegalTransition = errors.New("illegal_transition")
)

var ErrBookingNotFound = errors.New("booking_not_found")

func IsValidation(err error) bool {
	return errors.Is(err, ErrServiceNotFound) ||
		errors.Is(err, ErrStartNotInFuture) ||
		errors.Is(err, ErrSlotUnavailable) ||
		errors.Is(err, ErrInvalidStatus) ||
		errors.Is(err, ErrInvalidActor)
}

func IsPermission(err error) bool {
	return errors.Is(err, ErrServiceInactive) ||
		errors.Is(err, ErrProviderSuspended) ||
		errors.Is(err, ErrProviderLocked) ||
		errors.Is(err, ErrNotParticipant)
}

func IsPermanentState(err error) bool {
	return errors.Is(err, ErrBookingCompleted) ||
		errors.Is(err, ErrBookingCancelled) ||
		errors.Is(err, ErrIllegalTransition)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrBookingNotFound)
}
