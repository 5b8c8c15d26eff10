package ranking

import (
	"log"

	"github.com/david/rfp-desk/internal/models"
)

// DefaultWeights favors price, then delivery speed, then warranty length.
var DefaultWeights = models.CriteriaWeights{Price: 0.5, Delivery: 0.3, Warranty: 0.2}

// ResolveWeights picks the weights to rank with: an explicit override wins,
// then the RFP's own weights, then the defaults. Invalid weights are replaced
// with the defaults and logged — ranking must always produce an answer, so a
// bad weight set is never an error.
func ResolveWeights(rfp RfpInfo, override *models.CriteriaWeights) models.CriteriaWeights {
	candidate := rfp.CriteriaWeights
	if override != nil {
		candidate = override
	}
	if candidate == nil {
		return DefaultWeights
	}
	if err := candidate.Validate(); err != nil {
		log.Printf("ranking: invalid criteria weights for rfp %s, using defaults: %v", rfp.ID, err)
		return DefaultWeights
	}
	return *candidate
}
