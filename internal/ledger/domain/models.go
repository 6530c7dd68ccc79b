package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type EntryType string

const (
	// EntryTypeGrant adds credit to the provider's pool.
	EntryTypeGrant EntryType = "grant"
	// EntryTypeCycleApply adds credit and records how much of it was
	// applied to a specific cycle at grant time.
	EntryTypeCycleApply EntryType = "cycle_apply"
)

// BillCredit is an append-only ledger entry. Rows are never updated or
// deleted; the provider's granted credit is the sum of Amount.
type BillCredit struct {
	ID            snowflake.ID `gorm:"primaryKey;autoIncrement:false" json:"id"`
	ProviderID    snowflake.ID `gorm:"not null;index" json:"provider_id"`
	EntryType     EntryType    `gorm:"type:varchar(20);not null" json:"entry_type"`
	Amount        int64        `gorm:"not null" json:"amount"`
	CycleMonth    *time.Time   `gorm:"type:date" json:"cycle_month,omitempty"`
	AppliedAmount int64        `gorm:"not null;default:0" json:"applied_amount"`
	Note          string       `gorm:"type:varchar(255)" json:"note,omitempty"`
	CreatedAt     time.Time    `gorm:"not null" json:"created_at"`
}

// TableName sets the database table name.
func (BillCredit) TableName() string { return "bill_credits" }

// Balance splits a provider's credit into what was granted, what cycles
// have consumed, and what is still available.
type Balance struct {
	ProviderID snowflake.ID `json:"provider_id"`
	Granted    int64        `json:"granted"`
	Consumed   int64        `json:"consumed"`
	Available  int64        `json:"available"`
}

func NewBalance(providerID snowflake.ID, granted, consumed int64) Balance {
	available := granted - consumed
	if available < 0 {
		available = 0
	}
	return Balance{ProviderID: providerID, Granted: granted, Consumed: consumed, Available: available}
}

// ApplyHeadroom is how much more credit a cycle with the given fee can take.
func ApplyHeadroom(fee, cycleApplied, linkedApplied int64) int64 {
	used := cycleApplied
	if linkedApplied > used {
		used = linkedApplied
	}
	headroom := fee - used
	if headroom < 0 {
		return 0
	}
	return headroom
}

// AppliedAmount is min(amount, headroom, fee), floored at zero.
func AppliedAmount(amount, headroom, fee int64) int64 {
	applied := amount
	if headroom < applied {
		applied = headroom
	}
	if fee < applied {
		applied = fee
	}
	if applied < 0 {
		return 0
	}
	return applied
}
