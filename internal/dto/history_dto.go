package dto

import "encoding/json"

// HistoryFilter is bound from the query string of GET /v1/deals/:id/history.
type HistoryFilter struct {
	Page  int `form:"page,default=1"   validate:"min=1"`
	Limit int `form:"limit,default=50" validate:"min=1,max=200"`
}

type HistoryItem struct {
	ID          string          `json:"id"`
	DealID      string          `json:"deal_id"`
	ChangedBy   *string         `json:"changed_by,omitempty"`
	ChangeType  string          `json:"change_type"`
	Description string          `json:"description"`
	Before      json.RawMessage `json:"before,omitempty"`
	After       json.RawMessage `json:"after,omitempty"`
	CreatedAt   string          `json:"created_at"`
}

type HistoryListResponse struct {
	Data  []HistoryItem `json:"data"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}
