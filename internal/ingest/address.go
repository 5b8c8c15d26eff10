package ingest

import (
	"regexp"
	"strings"
)

var angleAddrRe = regexp.MustCompile(`<([^>]+)>`)

// ExtractAddress normalizes a raw From/To header value to a bare address:
// the angle-bracketed part of "Display Name <addr>" when present, otherwise
// the value itself, trimmed and lower-cased so addresses compare stably.
// Empty input yields the empty string.
func ExtractAddress(raw string) string {
	if raw == "" {
		return ""
	}
	addr := raw
	if m := angleAddrRe.FindStringSubmatch(raw); m != nil {
		addr = m[1]
	}
	return strings.ToLower(strings.TrimSpace(addr))
}

// ExtractDisplayName pulls the display-name part of "Display Name <addr>".
// Falls back to the address local part so auto-provisioned vendors always get
// a usable name.
func ExtractDisplayName(raw string) string {
	if raw == "" {
		return ""
	}
	if idx := strings.Index(raw, "<"); idx > 0 {
		name := strings.TrimSpace(raw[:idx])
		name = strings.Trim(name, `"`)
		if name != "" {
			return name
		}
	}
	addr := ExtractAddress(raw)
	if at := strings.Index(addr, "@"); at > 0 {
		return addr[:at]
	}
	return addr
}
