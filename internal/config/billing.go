package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// BillingPolicy carries the calendar and fee constants of the billing
// engine. It is read once at process start and passed by value; nothing
// mutates it afterwards.
type BillingPolicy struct {
	TimezoneName string        `mapstructure:"timezoneName"`
	UTCOffset    time.Duration `mapstructure:"utcOffset"`

	// SuspensionCutoffDay is the day-of-month from which an unpaid cycle
	// locks confirmations and triggers suspension.
	SuspensionCutoffDay int `mapstructure:"suspensionCutoffDay"`
	// BillDueDay is the day of the month following the billed month on
	// which a bill falls due.
	BillDueDay int `mapstructure:"billDueDay"`

	DefaultFeePercentage float64       `mapstructure:"defaultFeePercentage"`
	ReminderLead         time.Duration `mapstructure:"reminderLead"`
	ReminderWindow       time.Duration `mapstructure:"reminderWindow"`
}

func DefaultBillingPolicy() BillingPolicy {
	return BillingPolicy{
		TimezoneName:         "GYT",
		UTCOffset:            -4 * time.Hour,
		SuspensionCutoffDay:  15,
		BillDueDay:           15,
		DefaultFeePercentage: 10,
		ReminderLead:         time.Hour,
		ReminderWindow:       time.Minute,
	}
}

// LoadBillingPolicy reads billing.yml (optional) with SLOTWISE_BILLING_*
// environment overrides on top of the defaults.
func LoadBillingPolicy() (BillingPolicy, error) {
	v := viper.New()

	v.SetConfigName("billing")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/slotwise")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SLOTWISE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultBillingPolicy()
	v.SetDefault("billing.timezoneName", defaults.TimezoneName)
	v.SetDefault("billing.utcOffset", defaults.UTCOffset)
	v.SetDefault("billing.suspensionCutoffDay", defaults.SuspensionCutoffDay)
	v.SetDefault("billing.billDueDay", defaults.BillDueDay)
	v.SetDefault("billing.defaultFeePercentage", defaults.DefaultFeePercentage)
	v.SetDefault("billing.reminderLead", defaults.ReminderLead)
	v.SetDefault("billing.reminderWindow", defaults.ReminderWindow)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return BillingPolicy{}, err
		}
	}

	var file struct {
		Billing BillingPolicy `mapstructure:"billing"`
	}
	if err := v.Unmarshal(&file); err != nil {
		return BillingPolicy{}, err
	}
	if err := file.Billing.Validate(); err != nil {
		return BillingPolicy{}, err
	}
	return file.Billing, nil
}

func (p BillingPolicy) Validate() error {
	if p.SuspensionCutoffDay < 1 || p.SuspensionCutoffDay > 28 {
		return errors.New("billing.suspensionCutoffDay must be between 1 and 28")
	}
	if p.BillDueDay < 1 || p.BillDueDay > 28 {
		return errors.New("billing.billDueDay must be between 1 and 28")
	}
	if p.DefaultFeePercentage < 0 || p.DefaultFeePercentage > 100 {
		return errors.New("billing.defaultFeePercentage must be between 0 and 100")
	}
	if p.ReminderLead <= 0 || p.ReminderWindow <= 0 {
		return errors.New("billing.reminderLead and billing.reminderWindow must be positive")
	}
	if p.UTCOffset%time.Minute != 0 || p.UTCOffset < -14*time.Hour || p.UTCOffset > 14*time.Hour {
		return errors.New("billing.utcOffset is out of range")
	}
	return nil
}
