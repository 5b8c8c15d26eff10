package models

import (
	"time"

	"github.com/google/uuid"
)

// Vendor is a supplier that can respond to RFPs. Email is stored normalized
// (trimmed, lower-cased) so inbound mail can be matched to it.
type Vendor struct {
	ID            uuid.UUID              `json:"id"`
	Name          string                 `json:"name"`
	Email         string                 `json:"email"`
	ContactPerson string                 `json:"contact_person,omitempty"`
	Website       string                 `json:"website,omitempty"`
	SiteProfile   map[string]interface{} `json:"site_profile,omitempty"`
	Notes         string                 `json:"notes,omitempty"`
	CreatedAt     time.Time              `json:"created_at"`
	UpdatedAt     time.Time              `json:"updated_at"`
}
