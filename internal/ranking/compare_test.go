package ranking

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/david/rfp-desk/internal/models"
)

func fp(v float64) *float64 { return &v }
func ip(v int) *int         { return &v }

func makeProposal(id byte, price *float64, days, warranty *int, createdAt time.Time) models.Proposal {
	var uid uuid.UUID
	uid[15] = id
	return models.Proposal{
		ID:             uid,
		RfpID:          uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		VendorID:       uuid.MustParse("22222222-2222-2222-2222-222222222222"),
		TotalPrice:     price,
		DeliveryDays:   days,
		WarrantyMonths: warranty,
		CreatedAt:      createdAt,
	}
}

func TestCompareTwoProposalEndToEnd(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := makeProposal(1, fp(48000), ip(25), ip(12), now)
	b := makeProposal(2, fp(52000), ip(20), ip(24), now.Add(time.Minute))

	rfp := RfpInfo{
		ID:              uuid.MustParse("11111111-1111-1111-1111-111111111111"),
		Title:           "Office Laptops Procurement",
		Currency:        "USD",
		CriteriaWeights: &models.CriteriaWeights{Price: 0.5, Delivery: 0.3, Warranty: 0.2},
	}

	result := Compare(rfp, []models.Proposal{a, b}, nil)

	if len(result.Proposals) != 2 {
		t.Fatalf("expected 2 scored proposals, got %d", len(result.Proposals))
	}

	byID := map[uuid.UUID]models.ProposalScore{}
	for _, s := range result.Proposals {
		byID[s.ProposalID] = s
	}

	sa, sb := byID[a.ID], byID[b.ID]
	if sa.PriceScore != 1.0 || sb.PriceScore != 0.0 {
		t.Errorf("price scores: a=%v b=%v, want 1.0/0.0", sa.PriceScore, sb.PriceScore)
	}
	if sa.DeliveryScore != 0.0 || sb.DeliveryScore != 1.0 {
		t.Errorf("delivery scores: a=%v b=%v, want 0.0/1.0", sa.DeliveryScore, sb.DeliveryScore)
	}
	if sa.WarrantyScore != 0.0 || sb.WarrantyScore != 1.0 {
		t.Errorf("warranty scores: a=%v b=%v, want 0.0/1.0", sa.WarrantyScore, sb.WarrantyScore)
	}
	if sa.TotalScore != 0.5 || sb.TotalScore != 0.5 {
		t.Errorf("total scores: a=%v b=%v, want 0.5/0.5", sa.TotalScore, sb.TotalScore)
	}

	// Equal totals: cheaper proposal A wins the tie.
	if result.RecommendedProposalID == nil || *result.RecommendedProposalID != a.ID {
		t.Errorf("expected proposal A recommended, got %v", result.RecommendedProposalID)
	}
	if result.Proposals[0].Rank != 1 || result.Proposals[0].ProposalID != a.ID {
		t.Errorf("expected A at rank 1, got %v", result.Proposals[0])
	}
}

func TestCompareEmptyInput(t *testing.T) {
	result := Compare(RfpInfo{Title: "Chairs"}, nil, nil)
	if result.RecommendedProposalID != nil {
		t.Errorf("empty input must not recommend a proposal, got %v", result.RecommendedProposalID)
	}
	if result.Proposals == nil || len(result.Proposals) != 0 {
		t.Errorf("expected empty (non-nil) proposal list, got %#v", result.Proposals)
	}
	if result.Weights != DefaultWeights {
		t.Errorf("expected default weights, got %+v", result.Weights)
	}
}

func TestCompareScoreBounds(t *testing.T) {
	now := time.Now()
	proposals := []models.Proposal{
		makeProposal(1, fp(100), ip(5), ip(36), now),
		makeProposal(2, fp(900), ip(45), ip(6), now),
		makeProposal(3, fp(450), nil, ip(12), now),
		makeProposal(4, nil, ip(12), nil, now),
	}

	result := Compare(RfpInfo{Title: "Monitors"}, proposals, nil)
	for _, s := range result.Proposals {
		for name, v := range map[string]float64{
			"price": s.PriceScore, "delivery": s.DeliveryScore,
			"warranty": s.WarrantyScore, "total": s.TotalScore,
		} {
			if v < 0 || v > 1 {
				t.Errorf("%s score out of [0,1] for %s: %v", name, s.ProposalID, v)
			}
		}
		if s.ScoreOutOf10 != s.TotalScore*10 {
			t.Errorf("score_out_of_10 mismatch: %v vs %v", s.ScoreOutOf10, s.TotalScore*10)
		}
	}
}

func TestCompareIdenticalProposalsTieOnSecondaryKeys(t *testing.T) {
	now := time.Date(2026, 1, 5, 9, 0, 0, 0, time.UTC)
	first := makeProposal(1, fp(5000), ip(10), ip(12), now)
	second := makeProposal(2, fp(5000), ip(10), ip(12), now.Add(time.Hour))

	result := Compare(RfpInfo{Title: "Chairs"}, []models.Proposal{second, first}, nil)

	if result.Proposals[0].TotalScore != result.Proposals[1].TotalScore {
		t.Fatalf("identical proposals must score equally: %v vs %v",
			result.Proposals[0].TotalScore, result.Proposals[1].TotalScore)
	}
	// Same score and price: the earlier proposal is recommended.
	if *result.RecommendedProposalID != first.ID {
		t.Errorf("expected earlier proposal recommended, got %v", *result.RecommendedProposalID)
	}
}

func TestCompareAllNullProposals(t *testing.T) {
	now := time.Now()
	proposals := []models.Proposal{
		makeProposal(1, nil, nil, nil, now),
		makeProposal(2, nil, nil, nil, now.Add(time.Minute)),
	}

	result := Compare(RfpInfo{Title: "Mystery"}, proposals, nil)
	for _, s := range result.Proposals {
		if s.TotalScore != 0 {
			t.Errorf("all-null proposal must score 0, got %v", s.TotalScore)
		}
	}
	// Tie-break still yields exactly one recommendation.
	if result.RecommendedProposalID == nil {
		t.Fatal("expected a recommendation even for all-null proposals")
	}
}

func TestCompareNonFiniteInputsTreatedAsMissing(t *testing.T) {
	now := time.Now()
	proposals := []models.Proposal{
		makeProposal(1, fp(math.NaN()), ip(10), ip(12), now),
		makeProposal(2, fp(math.Inf(1)), ip(20), ip(24), now),
		makeProposal(3, fp(300), ip(15), ip(18), now),
	}

	result := Compare(RfpInfo{Title: "Servers"}, proposals, nil)
	for _, s := range result.Proposals {
		if math.IsNaN(s.TotalScore) || math.IsInf(s.TotalScore, 0) {
			t.Fatalf("non-finite input leaked into total score: %v", s.TotalScore)
		}
	}

	byID := map[uuid.UUID]models.ProposalScore{}
	for _, s := range result.Proposals {
		byID[s.ProposalID] = s
	}
	// The only finite price is alone in its class, so it scores 1.0.
	if byID[proposals[2].ID].PriceScore != 1.0 {
		t.Errorf("sole priced proposal should score 1.0, got %v", byID[proposals[2].ID].PriceScore)
	}
}

func TestCompareDeterminism(t *testing.T) {
	now := time.Date(2026, 2, 2, 12, 0, 0, 0, time.UTC)
	proposals := []models.Proposal{
		makeProposal(1, fp(48000), ip(25), ip(12), now),
		makeProposal(2, fp(52000), ip(20), ip(24), now),
		makeProposal(3, nil, ip(30), nil, now),
	}
	rfp := RfpInfo{Title: "Laptops", Currency: "USD"}

	first := Compare(rfp, proposals, nil)
	second := Compare(rfp, proposals, nil)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs produced different results:\n%+v\n%+v", first, second)
	}
}

func TestCompareSinglePricedProposalScoresOne(t *testing.T) {
	now := time.Now()
	result := Compare(RfpInfo{Title: "Printers"}, []models.Proposal{
		makeProposal(1, fp(1234), nil, nil, now),
	}, nil)

	s := result.Proposals[0]
	if s.PriceScore != 1.0 {
		t.Errorf("single priced proposal should score 1.0 on price, got %v", s.PriceScore)
	}
	if s.DeliveryScore != 0 || s.WarrantyScore != 0 {
		t.Errorf("missing criteria must score 0, got delivery=%v warranty=%v", s.DeliveryScore, s.WarrantyScore)
	}
}
