package scheduler

import (
	"strings"
	"time"

	"github.com/smallbiznis/slotwise/internal/config"
)

// Job names accepted by RunJob and SCHEDULER_ENABLED_JOBS.
const (
	JobBookingReminders = "booking_reminders"
	JobAutoComplete     = "auto_complete"
	JobGenerateBills    = "generate_bills"
	JobEnsureCycles     = "ensure_cycles"
	JobSuspendUnpaid    = "suspend_unpaid"
)

// Config controls which jobs run, their cron specs and timeouts.
type Config struct {
	EnabledJobs []string
	Schedules   map[string]string
	Timeouts    map[string]time.Duration
}

func DefaultConfig() Config {
	return Config{
		Schedules: map[string]string{
			JobBookingReminders: "* * * * *",
			JobAutoComplete:     "* * * * *",
			JobGenerateBills:    "* * * * *",
			JobEnsureCycles:     "5 0 1 * *",
			JobSuspendUnpaid:    "5 0 15 * *",
		},
		Timeouts: map[string]time.Duration{
			JobBookingReminders: 30 * time.Second,
			JobAutoComplete:     30 * time.Second,
			JobGenerateBills:    5 * time.Minute,
			JobEnsureCycles:     2 * time.Minute,
			JobSuspendUnpaid:    2 * time.Minute,
		},
	}
}

func ProvideConfig(cfg config.Config) Config {
	c := DefaultConfig()
	c.EnabledJobs = cfg.EnabledJobs
	return c
}

func (c Config) withDefaults() Config {
	defaults := DefaultConfig()
	if c.Schedules == nil {
		c.Schedules = map[string]string{}
	}
	if c.Timeouts == nil {
		c.Timeouts = map[string]time.Duration{}
	}
	for name, spec := range defaults.Schedules {
		if strings.TrimSpace(c.Schedules[name]) == "" {
			c.Schedules[name] = spec
		}
	}
	for name, timeout := range defaults.Timeouts {
		if c.Timeouts[name] <= 0 {
			c.Timeouts[name] = timeout
		}
	}
	return c
}
