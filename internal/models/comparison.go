package models

import (
	"github.com/google/uuid"
)

// ComparisonResult is the full output of ranking one RFP's proposals. It is
// computed on demand and never persisted. The shape is fixed and versioned
// through these structs; there is no open-ended catch-all field.
type ComparisonResult struct {
	RfpID                 uuid.UUID       `json:"rfp_id"`
	RfpTitle              string          `json:"rfp_title"`
	Currency              string          `json:"currency"`
	Weights               CriteriaWeights `json:"weights"`
	Proposals             []ProposalScore `json:"proposals"`
	RecommendedProposalID *uuid.UUID      `json:"recommended_proposal_id"`
}

// ProposalScore is one proposal's breakdown inside a ComparisonResult,
// ordered best-first (Rank 1..N).
type ProposalScore struct {
	ProposalID     uuid.UUID `json:"proposal_id"`
	VendorID       uuid.UUID `json:"vendor_id"`
	Rank           int       `json:"rank"`
	PriceScore     float64   `json:"price_score"`
	DeliveryScore  float64   `json:"delivery_score"`
	WarrantyScore  float64   `json:"warranty_score"`
	TotalScore     float64   `json:"total_score"`
	ScoreOutOf10   float64   `json:"score_out_of_10"`
	TotalPrice     *float64  `json:"total_price"`
	DeliveryDays   *int      `json:"delivery_days"`
	WarrantyMonths *int      `json:"warranty_months"`
}
