package ranking

import (
	"testing"

	"github.com/david/rfp-desk/internal/models"
)

func TestResolveWeights(t *testing.T) {
	valid := models.CriteriaWeights{Price: 0.6, Delivery: 0.3, Warranty: 0.1}
	overSum := models.CriteriaWeights{Price: 0.6, Delivery: 0.6, Warranty: 0.2}
	negative := models.CriteriaWeights{Price: 1.2, Delivery: -0.1, Warranty: -0.1}

	tests := []struct {
		name     string
		rfp      RfpInfo
		override *models.CriteriaWeights
		want     models.CriteriaWeights
	}{
		{
			name: "nothing supplied falls back to defaults",
			rfp:  RfpInfo{},
			want: DefaultWeights,
		},
		{
			name: "rfp weights used when valid",
			rfp:  RfpInfo{CriteriaWeights: &valid},
			want: valid,
		},
		{
			name:     "override beats rfp weights",
			rfp:      RfpInfo{CriteriaWeights: &overSum},
			override: &valid,
			want:     valid,
		},
		{
			name: "weight sum violation substitutes defaults",
			rfp:  RfpInfo{CriteriaWeights: &overSum},
			want: DefaultWeights,
		},
		{
			name:     "negative weights substitute defaults",
			rfp:      RfpInfo{},
			override: &negative,
			want:     DefaultWeights,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ResolveWeights(tt.rfp, tt.override)
			if got != tt.want {
				t.Errorf("ResolveWeights() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCriteriaWeightsValidate(t *testing.T) {
	tests := []struct {
		name    string
		weights models.CriteriaWeights
		wantErr bool
	}{
		{"defaults are valid", DefaultWeights, false},
		{"sum within tolerance", models.CriteriaWeights{Price: 0.5000001, Delivery: 0.3, Warranty: 0.2}, false},
		{"sum too high", models.CriteriaWeights{Price: 0.6, Delivery: 0.6, Warranty: 0.2}, true},
		{"negative weight", models.CriteriaWeights{Price: -0.2, Delivery: 0.8, Warranty: 0.4}, true},
		{"zero weight disables a criterion", models.CriteriaWeights{Price: 0.7, Delivery: 0.3, Warranty: 0}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.weights.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
