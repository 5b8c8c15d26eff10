package ingest

import "testing"

func TestExtractAddress(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"display name with brackets", "Jane Doe <jane@example.com>", "jane@example.com"},
		{"bare address upper-cased", "JANE@EXAMPLE.COM", "jane@example.com"},
		{"bare address with spaces", "  sales@lenovo.example.com  ", "sales@lenovo.example.com"},
		{"quoted display name", `"Dell Sales" <dell.vendor@example.com>`, "dell.vendor@example.com"},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractAddress(tt.raw); got != tt.want {
				t.Errorf("ExtractAddress(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestExtractDisplayName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"display name", "Jane Doe <jane@example.com>", "Jane Doe"},
		{"quoted display name", `"HP Enterprise" <hp.vendor@example.com>`, "HP Enterprise"},
		{"bare address falls back to local part", "asus.supplies@example.com", "asus.supplies"},
		{"empty input", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractDisplayName(tt.raw); got != tt.want {
				t.Errorf("ExtractDisplayName(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
