package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Template string

const (
	TemplateBookingCreated       Template = "booking_created"
	TemplateBookingConfirmed     Template = "booking_confirmed"
	TemplateBookingCancelled     Template = "booking_cancelled"
	TemplateBookingCancelReceipt Template = "booking_cancel_receipt"
	TemplateBookingReminder      Template = "booking_reminder"
	TemplateBillStatement        Template = "bill_statement"
	TemplatePaymentReceived      Template = "payment_received"
	TemplateAccountSuspended     Template = "account_suspended"
)

var Templates = []Template{
	TemplateBookingCreated,
	TemplateBookingConfirmed,
	TemplateBookingCancelled,
	TemplateBookingCancelReceipt,
	TemplateBookingReminder,
	TemplateBillStatement,
	TemplatePaymentReceived,
	TemplateAccountSuspended,
}

type Recipient struct {
	UserID    snowflake.ID `json:"user_id"`
	Email     string       `json:"email"`
	Name      string       `json:"name"`
	PushToken string       `json:"push_token,omitempty"`
}

type Message struct {
	Template  Template       `json:"template"`
	Recipient Recipient      `json:"recipient"`
	Data      map[string]any `json:"data"`
}

// Dispatcher delivers notifications after the state they describe has been
// committed. Notify never fails the caller; Send reports delivery so callers
// can record a success marker.
type Dispatcher interface {
	Notify(ctx context.Context, msg Message)
	Send(ctx context.Context, msg Message) error
}

// Channel is one delivery transport.
type Channel interface {
	Name() string
	Deliver(ctx context.Context, msg Message) error
}

var (
	ErrNoRecipient     = errors.New("notification_no_recipient")
	ErrUnknownTemplate = errors.New("notification_unknown_template")
	ErrDisabled        = errors.New("notification_channel_disabled")
)
