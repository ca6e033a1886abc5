package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Deal status values. A deal is active until both parties accept.
const (
	DealStatusActive    = "active"
	DealStatusCompleted = "completed"
)

// Deal type values.
const (
	DealTypeGoods    = "goods"
	DealTypeServices = "services"
)

// Deal is one physical version-row of a commercial deal between two companies.
//
// Dual-id scheme: RowKey identifies this exact snapshot (items and any other
// per-version children hang off it), while DealID is the stable handle the
// rest of the platform (chat links, documents, history) refers to. The
// composite unique index on (deal_id, version) is the arbiter for concurrent
// version creation: the second writer's insert violates it and surfaces as a
// conflict instead of two rows claiming the same version.
type Deal struct {
	RowKey  uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	DealID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uni_deals_deal_version,priority:1;index"`
	Version int       `gorm:"not null;default:1;uniqueIndex:uni_deals_deal_version,priority:2"`

	// Party refs never change across versions of one deal — enforced at the
	// application layer (overrides simply cannot touch them).
	BuyerCompanyID  uuid.UUID `gorm:"type:uuid;not null;index"`
	SellerCompanyID uuid.UUID `gorm:"type:uuid;not null;index"`

	Status   string `gorm:"type:varchar(20);not null;default:'active'"`
	DealType string `gorm:"type:varchar(20);not null"`

	// Proposal / approval state — per version. A freshly cloned version is an
	// unapproved proposal, so all four fields reset to nil on clone.
	ProposedByCompanyID *uuid.UUID `gorm:"type:uuid"`
	BuyerAcceptedAt     *time.Time
	SellerAcceptedAt    *time.Time
	RejectedByCompanyID *uuid.UUID `gorm:"type:uuid"`

	// Free-form commercial fields that vary per version.
	ContractNumber *string `gorm:"type:varchar(100)"`
	Comment        *string `gorm:"type:text"`
	StartsAt       *time.Time
	EndsAt         *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time

	Items []DealItem `gorm:"foreignKey:DealRowKey;constraint:OnDelete:CASCADE"`
}

// TotalAmount sums the line amounts of all items on this version.
func (d *Deal) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, item := range d.Items {
		total = total.Add(item.LineAmount())
	}
	return total
}

// IsCompleted reports whether both parties have accepted this version.
func (d *Deal) IsCompleted() bool { return d.Status == DealStatusCompleted }

// RoleOf returns the side companyID occupies on this deal, or RoleNone.
func (d *Deal) RoleOf(companyID uuid.UUID) Role {
	switch companyID {
	case d.BuyerCompanyID:
		return RoleBuyer
	case d.SellerCompanyID:
		return RoleSeller
	default:
		return RoleNone
	}
}

// Role is a company's side on a deal.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
	RoleNone   Role = ""
)

// Counterparty returns the other side's company id given the caller's role.
func (d *Deal) Counterparty(role Role) uuid.UUID {
	if role == RoleBuyer {
		return d.SellerCompanyID
	}
	return d.BuyerCompanyID
}

// DealOverrides are the scalar fields a new version or in-place update may
// change. Nil pointers mean "keep the current value". Party refs, version
// numbers and row keys are deliberately absent.
type DealOverrides struct {
	ContractNumber *string
	Comment        *string
	StartsAt       *time.Time
	EndsAt         *time.Time
}

// Apply copies the non-nil overrides onto d.
func (o DealOverrides) Apply(d *Deal) {
	if o.ContractNumber != nil {
		d.ContractNumber = o.ContractNumber
	}
	if o.Comment != nil {
		d.Comment = o.Comment
	}
	if o.StartsAt != nil {
		d.StartsAt = o.StartsAt
	}
	if o.EndsAt != nil {
		d.EndsAt = o.EndsAt
	}
}

// NextVersion builds the successor row of latest: fresh row key, version+1,
// deep-copied items, overrides applied, approval state cleared. The returned
// row shares no item storage with latest, so later mutations of either
// version's items cannot leak into the other.
func NextVersion(latest *Deal, overrides DealOverrides) *Deal {
	next := &Deal{
		RowKey:          uuid.New(),
		DealID:          latest.DealID,
		Version:         latest.Version + 1,
		BuyerCompanyID:  latest.BuyerCompanyID,
		SellerCompanyID: latest.SellerCompanyID,
		Status:          DealStatusActive,
		DealType:        latest.DealType,
		ContractNumber:  latest.ContractNumber,
		Comment:         latest.Comment,
		StartsAt:        latest.StartsAt,
		EndsAt:          latest.EndsAt,
	}
	overrides.Apply(next)

	next.Items = make([]DealItem, 0, len(latest.Items))
	for _, item := range latest.Items {
		next.Items = append(next.Items, item.CopyTo(next.RowKey))
	}
	return next
}
