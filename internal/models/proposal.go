package models

import (
	"time"

	"github.com/google/uuid"
)

// ProposalSource tells where a proposal came from.
type ProposalSource string

const (
	SourceEmail  ProposalSource = "EMAIL"
	SourceManual ProposalSource = "MANUAL"
)

// Proposal is a vendor's quoted response to one RFP. The numeric fields are
// pointers because proposals frequently arrive incomplete; the ranking engine
// treats a missing value as worst-in-class, it never drops the proposal.
type Proposal struct {
	ID             uuid.UUID      `json:"id"`
	RfpID          uuid.UUID      `json:"rfp_id"`
	VendorID       uuid.UUID      `json:"vendor_id"`
	TotalPrice     *float64       `json:"total_price"`
	Currency       string         `json:"currency"`
	DeliveryDays   *int           `json:"delivery_days"`
	WarrantyMonths *int           `json:"warranty_months"`
	Terms          string         `json:"terms,omitempty"`
	Notes          string         `json:"notes,omitempty"`
	Source         ProposalSource `json:"source"`
	EmailID        *uuid.UUID     `json:"email_id,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}
