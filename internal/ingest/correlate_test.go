package ingest

import "testing"

func TestCorrelateSubject(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		want    RfpReference
	}{
		{
			name:    "explicit id tag",
			subject: "RFPID: abc123",
			want:    RfpReference{Kind: MatchExact, RfpID: "abc123"},
		},
		{
			name:    "explicit id tag with dash",
			subject: "Quotation RFPID-9f3a21",
			want:    RfpReference{Kind: MatchExact, RfpID: "9f3a21"},
		},
		{
			name:    "id tag carrying a full uuid",
			subject: "RFPID: 550e8400-e29b-41d4-a716-446655440000",
			want:    RfpReference{Kind: MatchExact, RfpID: "550e8400-e29b-41d4-a716-446655440000"},
		},
		{
			name:    "id tag survives reply prefix",
			subject: "Re: RFPID: abc123",
			want:    RfpReference{Kind: MatchExact, RfpID: "abc123"},
		},
		{
			name:    "id tag wins over rfp keyword tag",
			subject: "RFP: laptops RFPID: abc123",
			want:    RfpReference{Kind: MatchExact, RfpID: "abc123"},
		},
		{
			name:    "rfp tag yields keyword",
			subject: "RFP: Laptop Refresh",
			want:    RfpReference{Kind: MatchKeyword, Keyword: "Laptop Refresh"},
		},
		{
			name:    "rfp tag with dash",
			subject: "RFP - 27-inch Monitors Purchase",
			want:    RfpReference{Kind: MatchKeyword, Keyword: "27-inch Monitors Purchase"},
		},
		{
			name:    "reply with proposal-for prefix",
			subject: "Re: Proposal for Procurement of 20 Business Laptops",
			want:    RfpReference{Kind: MatchKeyword, Keyword: "Procurement of 20 Business Laptops"},
		},
		{
			name:    "forward with quote prefix",
			subject: "Fwd: Quote: Office Chairs",
			want:    RfpReference{Kind: MatchKeyword, Keyword: "Office Chairs"},
		},
		{
			name:    "bid dash prefix",
			subject: "Bid - Ergonomic Chairs",
			want:    RfpReference{Kind: MatchKeyword, Keyword: "Ergonomic Chairs"},
		},
		{
			name:    "plain subject becomes keyword",
			subject: "Office Laptops Procurement",
			want:    RfpReference{Kind: MatchKeyword, Keyword: "Office Laptops Procurement"},
		},
		{
			name:    "too short after stripping",
			subject: "Hi",
			want:    RfpReference{Kind: MatchNone},
		},
		{
			name:    "empty subject",
			subject: "",
			want:    RfpReference{Kind: MatchNone},
		},
		{
			name:    "whitespace only",
			subject: "   ",
			want:    RfpReference{Kind: MatchNone},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CorrelateSubject(tt.subject)
			if got != tt.want {
				t.Errorf("CorrelateSubject(%q) = %+v, want %+v", tt.subject, got, tt.want)
			}
		})
	}
}

func TestCorrelateSubjectIsDeterministic(t *testing.T) {
	subject := "Re: Proposal for Procurement of 20 Business Laptops"
	first := CorrelateSubject(subject)
	for i := 0; i < 10; i++ {
		if got := CorrelateSubject(subject); got != first {
			t.Fatalf("run %d diverged: %+v vs %+v", i, got, first)
		}
	}
}
