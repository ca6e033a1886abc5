package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Request DTOs ────────────────────────────────────────────────────────────

type DealItemRequest struct {
	ProductName string          `json:"product_name" validate:"required"`
	Article     string          `json:"article"      validate:"omitempty,max=100"`
	Quantity    decimal.Decimal `json:"quantity"     validate:"required,gt=0"`
	Unit        string          `json:"unit"         validate:"omitempty,max=30"`
	UnitPrice   decimal.Decimal `json:"unit_price"   validate:"required,gt=0"`
	Position    int             `json:"position"     validate:"omitempty,min=1"`
}

type CreateDealRequest struct {
	SellerID string            `json:"seller_id" validate:"required,uuid"`
	DealType string            `json:"deal_type" validate:"required,oneof=goods services"`
	Items    []DealItemRequest `json:"items"     validate:"required,min=1,dive"`
	Comment  *string           `json:"comment"`
}

// DealOverridesRequest is the partial scalar field set accepted by both
// "create new version" and "update latest in place". Absent fields keep
// their current values. Party refs are not overridable.
type DealOverridesRequest struct {
	ContractNumber *string    `json:"contract_number" validate:"omitempty,max=100"`
	Comment        *string    `json:"comment"`
	StartsAt       *time.Time `json:"starts_at"`
	EndsAt         *time.Time `json:"ends_at"`
}

type UpdateDealRequest struct {
	DealOverridesRequest
	// Items, when present, replaces the latest version's item set.
	Items []DealItemRequest `json:"items" validate:"omitempty,min=1,dive"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type DealItemResponse struct {
	ProductName string          `json:"product_name"`
	Article     string          `json:"article,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Position    int             `json:"position"`
	LineAmount  decimal.Decimal `json:"line_amount"`
}

type DealResponse struct {
	DealID          string             `json:"deal_id"`
	RowKey          string             `json:"row_key"`
	Version         int                `json:"version"`
	BuyerCompanyID  string             `json:"buyer_company_id"`
	SellerCompanyID string             `json:"seller_company_id"`
	Status          string             `json:"status"`
	DealType        string             `json:"deal_type"`
	ProposedBy      *string            `json:"proposed_by,omitempty"`
	BuyerAcceptedAt *time.Time         `json:"buyer_accepted_at,omitempty"`
	SellerAcceptedAt *time.Time        `json:"seller_accepted_at,omitempty"`
	RejectedBy      *string            `json:"rejected_by,omitempty"`
	ContractNumber  *string            `json:"contract_number,omitempty"`
	Comment         *string            `json:"comment,omitempty"`
	StartsAt        *time.Time         `json:"starts_at,omitempty"`
	EndsAt          *time.Time         `json:"ends_at,omitempty"`
	Items           []DealItemResponse `json:"items"`
	TotalAmount     decimal.Decimal    `json:"total_amount"`
	CreatedAt       time.Time          `json:"created_at"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

type DeleteVersionResponse struct {
	DealID         string `json:"deal_id"`
	DeletedVersion int    `json:"deleted_version"`
}

type DeleteDealResponse struct {
	DealID string `json:"deal_id"`
}
