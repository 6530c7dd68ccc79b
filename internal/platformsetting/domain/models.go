package domain

import (
	"math"
	"time"
)

// SettingID is the primary key of the single platform settings row.
const SettingID = 1

type PlatformSetting struct {
	ID            int64     `gorm:"primaryKey;autoIncrement:false"`
	FeePercentage float64   `gorm:"not null"`
	UpdatedAt     time.Time `gorm:"not null"`
}

func (PlatformSetting) TableName() string { return "platform_settings" }

// FeePolicy is the fee configuration captured at the start of a request or
// job and passed by value to fee computations.
type FeePolicy struct {
	Percentage float64
}

// Fee returns round(total * pct / 100), half away from zero.
func (p FeePolicy) Fee(total int64) int64 {
	if total <= 0 || p.Percentage <= 0 {
		return 0
	}
	return int64(math.Round(float64(total) * p.Percentage / 100))
}

func ValidPercentage(pct float64) bool {
	return !math.IsNaN(pct) && pct >= 0 && pct <= 100
}
