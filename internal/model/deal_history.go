package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// History change-type tags.
const (
	ChangeCreated        = "created"
	ChangeUpdated        = "updated"
	ChangeVersionCreated = "version_created"
	ChangeVersionDeleted = "version_deleted"
	ChangeProposed       = "proposed"
	ChangeAccepted       = "accepted"
	ChangeRejected       = "rejected"
)

// DealHistory is one append-only audit entry for a deal, keyed by the stable
// business id so entries survive version rollbacks. Entries are for display;
// reconstruction always goes through explicit version rows, never log replay.
type DealHistory struct {
	ID                 uuid.UUID  `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DealID             uuid.UUID  `gorm:"type:uuid;not null;index"`
	ChangedByCompanyID *uuid.UUID `gorm:"type:uuid"`
	ChangeType         string     `gorm:"type:varchar(30);not null"`
	Description        string     `gorm:"type:text;not null"`
	// Opaque structured snapshots of the affected fields.
	Before    json.RawMessage `gorm:"type:jsonb"`
	After     json.RawMessage `gorm:"type:jsonb"`
	CreatedAt time.Time
}
