package ingest

import "testing"

func TestParseQuote(t *testing.T) {
	tests := []struct {
		name         string
		text         string
		defaultCurr  string
		wantPrice    float64
		wantNoPrice  bool
		wantCurrency string
		wantDays     int
		wantNoDays   bool
		wantMonths   int
		wantNoMonths bool
	}{
		{
			name:         "full quote",
			text:         "Total price: $48,000 for 20 units. Delivery within 25 days. 12-month warranty included.",
			defaultCurr:  "USD",
			wantPrice:    48000,
			wantCurrency: "USD",
			wantDays:     25,
			wantMonths:   12,
		},
		{
			name:         "warranty in years",
			text:         "We quote a total of USD 52,000. Delivery in 20 business days with a warranty of 2 years.",
			defaultCurr:  "USD",
			wantPrice:    52000,
			wantCurrency: "USD",
			wantDays:     20,
			wantMonths:   24,
		},
		{
			name:         "rupee symbol overrides default currency",
			text:         "Our price is ₹15,00,000 with delivery in 30 days.",
			defaultCurr:  "USD",
			wantPrice:    1500000,
			wantCurrency: "INR",
			wantDays:     30,
			wantNoMonths: true,
		},
		{
			name:         "itemized lines resolve to the largest total",
			text:         "Unit cost: 950.50 per laptop\nTotal amount: 47,525 including shipping",
			defaultCurr:  "EUR",
			wantPrice:    47525,
			wantCurrency: "EUR",
			wantNoDays:   true,
			wantNoMonths: true,
		},
		{
			name:         "lead time phrasing",
			text:         "Lead time is 45 days from purchase order.",
			defaultCurr:  "USD",
			wantNoPrice:  true,
			wantCurrency: "USD",
			wantDays:     45,
			wantNoMonths: true,
		},
		{
			name:         "bare numbers are not prices",
			text:         "We shipped 500 units to 12 customers last year.",
			defaultCurr:  "USD",
			wantNoPrice:  true,
			wantCurrency: "USD",
			wantNoDays:   true,
			wantNoMonths: true,
		},
		{
			name:         "empty body",
			text:         "",
			defaultCurr:  "USD",
			wantNoPrice:  true,
			wantCurrency: "USD",
			wantNoDays:   true,
			wantNoMonths: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseQuote(tt.text, tt.defaultCurr)

			if tt.wantNoPrice {
				if got.TotalPrice != nil {
					t.Errorf("TotalPrice = %v, want nil", *got.TotalPrice)
				}
			} else if got.TotalPrice == nil || *got.TotalPrice != tt.wantPrice {
				t.Errorf("TotalPrice = %v, want %v", got.TotalPrice, tt.wantPrice)
			}

			if got.Currency != tt.wantCurrency {
				t.Errorf("Currency = %q, want %q", got.Currency, tt.wantCurrency)
			}

			if tt.wantNoDays {
				if got.DeliveryDays != nil {
					t.Errorf("DeliveryDays = %v, want nil", *got.DeliveryDays)
				}
			} else if got.DeliveryDays == nil || *got.DeliveryDays != tt.wantDays {
				t.Errorf("DeliveryDays = %v, want %v", got.DeliveryDays, tt.wantDays)
			}

			if tt.wantNoMonths {
				if got.WarrantyMonths != nil {
					t.Errorf("WarrantyMonths = %v, want nil", *got.WarrantyMonths)
				}
			} else if got.WarrantyMonths == nil || *got.WarrantyMonths != tt.wantMonths {
				t.Errorf("WarrantyMonths = %v, want %v", got.WarrantyMonths, tt.wantMonths)
			}
		})
	}
}

func TestParsedQuoteEmpty(t *testing.T) {
	if !(ParsedQuote{Currency: "USD"}).Empty() {
		t.Error("quote with only a currency should be empty")
	}
	price := 100.0
	if (ParsedQuote{TotalPrice: &price}).Empty() {
		t.Error("quote with a price should not be empty")
	}
}
