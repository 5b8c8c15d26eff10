// Package ranking turns an RFP's proposals into per-criterion scores, an
// overall ranking and a recommended proposal. It is a pure function of its
// inputs: no I/O, no shared state, safe to call concurrently.
package ranking

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/david/rfp-desk/internal/models"
)

// RfpInfo is the slice of an RFP the engine actually reads.
type RfpInfo struct {
	ID              uuid.UUID
	Title           string
	Currency        string
	CriteriaWeights *models.CriteriaWeights
}

// Compare scores and ranks the proposals for one RFP. It never fails: an
// empty proposal list yields an empty result with no recommendation, and
// proposals with missing or non-finite numbers simply score 0 on the
// affected criteria.
func Compare(rfp RfpInfo, proposals []models.Proposal, override *models.CriteriaWeights) models.ComparisonResult {
	weights := ResolveWeights(rfp, override)

	result := models.ComparisonResult{
		RfpID:     rfp.ID,
		RfpTitle:  rfp.Title,
		Currency:  rfp.Currency,
		Weights:   weights,
		Proposals: []models.ProposalScore{},
	}
	if len(proposals) == 0 {
		return result
	}

	prices := make([]*float64, len(proposals))
	deliveries := make([]*float64, len(proposals))
	warranties := make([]*float64, len(proposals))
	for i, p := range proposals {
		prices[i] = sanitize(p.TotalPrice)
		deliveries[i] = sanitizeInt(p.DeliveryDays)
		warranties[i] = sanitizeInt(p.WarrantyMonths)
	}

	priceScores := scoreLowerIsBetter(prices)
	deliveryScores := scoreLowerIsBetter(deliveries)
	warrantyScores := scoreHigherIsBetter(warranties)

	type ranked struct {
		score     models.ProposalScore
		price     *float64
		createdAt time.Time
	}

	entries := make([]ranked, len(proposals))
	for i, p := range proposals {
		total := priceScores[i]*weights.Price +
			deliveryScores[i]*weights.Delivery +
			warrantyScores[i]*weights.Warranty
		entries[i] = ranked{
			score: models.ProposalScore{
				ProposalID:     p.ID,
				VendorID:       p.VendorID,
				PriceScore:     priceScores[i],
				DeliveryScore:  deliveryScores[i],
				WarrantyScore:  warrantyScores[i],
				TotalScore:     total,
				ScoreOutOf10:   total * 10,
				TotalPrice:     p.TotalPrice,
				DeliveryDays:   p.DeliveryDays,
				WarrantyMonths: p.WarrantyMonths,
			},
			price:     prices[i],
			createdAt: p.CreatedAt,
		}
	}

	// Highest total wins. Ties break on lower price (a priced proposal beats
	// an unpriced one), then earlier creation, then id bytes so repeated runs
	// are deterministic.
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.score.TotalScore != b.score.TotalScore {
			return a.score.TotalScore > b.score.TotalScore
		}
		switch {
		case a.price != nil && b.price != nil && *a.price != *b.price:
			return *a.price < *b.price
		case a.price != nil && b.price == nil:
			return true
		case a.price == nil && b.price != nil:
			return false
		}
		if !a.createdAt.Equal(b.createdAt) {
			return a.createdAt.Before(b.createdAt)
		}
		return a.score.ProposalID.String() < b.score.ProposalID.String()
	})

	result.Proposals = make([]models.ProposalScore, len(entries))
	for i, e := range entries {
		e.score.Rank = i + 1
		result.Proposals[i] = e.score
	}

	best := result.Proposals[0].ProposalID
	result.RecommendedProposalID = &best

	return result
}

// scoreLowerIsBetter min-max scales values where a smaller number is the
// better offer (price, delivery days). Missing values score 0; when every
// present value is equal, all present values score 1.
func scoreLowerIsBetter(values []*float64) []float64 {
	min, max, _ := bounds(values)
	scores := make([]float64, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		if max == min {
			scores[i] = 1.0
			continue
		}
		scores[i] = (max - *v) / (max - min)
	}
	return scores
}

// scoreHigherIsBetter min-max scales values where a larger number is the
// better offer (warranty months).
func scoreHigherIsBetter(values []*float64) []float64 {
	min, max, _ := bounds(values)
	scores := make([]float64, len(values))
	for i, v := range values {
		if v == nil {
			continue
		}
		if max == min {
			scores[i] = 1.0
			continue
		}
		scores[i] = (*v - min) / (max - min)
	}
	return scores
}

func bounds(values []*float64) (min, max float64, any bool) {
	for _, v := range values {
		if v == nil {
			continue
		}
		if !any {
			min, max, any = *v, *v, true
			continue
		}
		if *v < min {
			min = *v
		}
		if *v > max {
			max = *v
		}
	}
	return min, max, any
}

// sanitize drops NaN and infinite inputs so they rank as missing instead of
// poisoning every score in the set.
func sanitize(v *float64) *float64 {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) {
		return nil
	}
	return v
}

func sanitizeInt(v *int) *float64 {
	if v == nil {
		return nil
	}
	f := float64(*v)
	return &f
}
