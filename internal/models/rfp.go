package models

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
)

// Rfp is a buyer-issued request for proposal. StructuredSpec is whatever the
// extraction step produced from the natural-language input; the core never
// interprets it.
type Rfp struct {
	ID                    uuid.UUID              `json:"id"`
	Title                 string                 `json:"title"`
	NaturalLanguageInput  string                 `json:"natural_language_input"`
	StructuredSpec        map[string]interface{} `json:"structured_spec,omitempty"`
	Budget                *float64               `json:"budget"`
	Currency              string                 `json:"currency"`
	DeliveryDeadline      *time.Time             `json:"delivery_deadline"`
	MinimumWarrantyMonths *int                   `json:"minimum_warranty_months"`
	PaymentTerms          string                 `json:"payment_terms"`
	CriteriaWeights       *CriteriaWeights       `json:"criteria_weights,omitempty"`
	CreatedBy             *uuid.UUID             `json:"created_by,omitempty"`
	CreatedAt             time.Time              `json:"created_at"`
	UpdatedAt             time.Time              `json:"updated_at"`
}

// CriteriaWeights is the relative importance of each ranking criterion.
// The three weights must be non-negative and sum to 1.
type CriteriaWeights struct {
	Price    float64 `json:"price"`
	Delivery float64 `json:"delivery"`
	Warranty float64 `json:"warranty"`
}

// WeightSumTolerance is how far from 1.0 the weight sum may drift before the
// weights are considered invalid.
const WeightSumTolerance = 1e-6

// Validate reports why the weights are unusable, or nil.
func (w CriteriaWeights) Validate() error {
	if w.Price < 0 || w.Delivery < 0 || w.Warranty < 0 {
		return fmt.Errorf("criteria weights must be non-negative: %+v", w)
	}
	sum := w.Price + w.Delivery + w.Warranty
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return fmt.Errorf("criteria weights must be finite: %+v", w)
	}
	if math.Abs(sum-1.0) > WeightSumTolerance {
		return fmt.Errorf("criteria weights must sum to 1.0, got %g", sum)
	}
	return nil
}
