package dto

import "time"

// SaveDocumentRequest carries the full form payload — saves are whole-payload
// overwrites, never merges.
type SaveDocumentRequest struct {
	Payload map[string]any `json:"payload" validate:"required"`
	// ExpectedUpdatedAt opts into server-side optimistic locking: when set and
	// older than the stored row's updated_at, the save is rejected with a
	// conflict instead of silently overwriting the counterparty's edit.
	// When absent the save is advisory-only last-writer-wins.
	ExpectedUpdatedAt *time.Time `json:"expected_updated_at"`
}

type DocumentResponse struct {
	DealID    string         `json:"deal_id"`
	DocType   string         `json:"doc_type"`
	Payload   map[string]any `json:"payload"`
	UpdatedAt time.Time      `json:"updated_at"`
	// UpdatedBy is nil for the synthetic default form and system-authored content.
	UpdatedBy *string `json:"updated_by"`
}
