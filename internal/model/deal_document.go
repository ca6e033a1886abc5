package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Document types shared by buyer and seller on a deal. Closed set — extending
// it is a schema change, not runtime configuration.
const (
	DocTypeOrder          = "order"
	DocTypeBill           = "bill"
	DocTypeSupplyContract = "supply_contract"
	DocTypeAct            = "act"
	DocTypeInvoice        = "invoice"
	DocTypeContract       = "contract"
	DocTypeOthers         = "others"
)

var knownDocTypes = map[string]bool{
	DocTypeOrder:          true,
	DocTypeBill:           true,
	DocTypeSupplyContract: true,
	DocTypeAct:            true,
	DocTypeInvoice:        true,
	DocTypeContract:       true,
	DocTypeOthers:         true,
}

// ValidDocType reports whether t belongs to the enumerated document-type set.
func ValidDocType(t string) bool { return knownDocTypes[t] }

// DealDocument holds one editable form payload per (deal, document type) pair.
// Created lazily on first save; last-writer-wins on concurrent saves. The
// UpdatedBy/UpdatedAt pair powers the client-side "counterparty changed this
// document" warning.
type DealDocument struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DealID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uni_deal_documents_deal_type,priority:1"`
	DocType string    `gorm:"type:varchar(30);not null;uniqueIndex:uni_deal_documents_deal_type,priority:2"`

	Payload json.RawMessage `gorm:"type:jsonb;not null;default:'{}'"`
	// Nil means system-authored/default content.
	UpdatedByCompanyID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
