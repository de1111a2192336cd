package model

import (
	"time"

	"github.com/google/uuid"
)

// TriggerType names a date-determined reason to send a message.
type TriggerType string

const (
	TriggerBirthday     TriggerType = "birthday"
	TriggerExpiryBefore TriggerType = "expiry_before"
	TriggerExpiryOn     TriggerType = "expiry_on"
	TriggerExpiryAfter  TriggerType = "expiry_after"
	TriggerBulkCustom   TriggerType = "bulk_custom"
)

// Day offsets of the expiry triggers relative to the membership end date.
const (
	ExpiryBeforeOffset = 3
	ExpiryOnOffset     = 0
	ExpiryAfterOffset  = -3
)

// RequiresLedger reports whether sends for this trigger are deduplicated
// through the trigger ledger. Bulk campaigns are one-shot and never checked.
func (t TriggerType) RequiresLedger() bool {
	switch t {
	case TriggerBirthday, TriggerExpiryBefore, TriggerExpiryOn, TriggerExpiryAfter:
		return true
	}
	return false
}

// TriggerRecord is a write-once ledger entry. The composite key
// (client_id, trigger_type, trigger_date) carries a unique constraint;
// duplicate inserts are silently ignored.
type TriggerRecord struct {
	ClientID    uuid.UUID   `json:"client_id" db:"client_id"`
	TriggerType TriggerType `json:"trigger_type" db:"trigger_type"`
	TriggerDate time.Time   `json:"trigger_date" db:"trigger_date"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
}
