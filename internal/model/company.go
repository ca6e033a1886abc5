package model

import (
	"time"

	"github.com/google/uuid"
)

// Company is the narrow slice of the company catalog this service consumes:
// enough to validate a party ref and to reach a counterparty by email.
// Catalog CRUD lives in the companies service.
type Company struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name         string    `gorm:"not null"`
	ContactEmail string    `gorm:"not null"`
	Active       bool      `gorm:"not null;default:true"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
