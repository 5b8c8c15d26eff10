package db

import (
	"testing"

	"github.com/david/rfp-desk/internal/models"
)

func TestMarshalJSONB(t *testing.T) {
	tests := []struct {
		name string
		in   interface{}
		want interface{} // nil means SQL NULL
	}{
		{"nil value", nil, nil},
		{"empty map", map[string]interface{}{}, nil},
		{"populated map", map[string]interface{}{"qty": 20}, `{"qty":20}`},
		{
			"criteria weights",
			models.CriteriaWeights{Price: 0.5, Delivery: 0.3, Warranty: 0.2},
			`{"price":0.5,"delivery":0.3,"warranty":0.2}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := marshalJSONB(tt.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.want == nil {
				if got != nil {
					t.Fatalf("want NULL, got %v", got)
				}
				return
			}
			if got != tt.want {
				t.Fatalf("want %v, got %v", tt.want, got)
			}
		})
	}
}
