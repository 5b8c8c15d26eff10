package ingest

import (
	"regexp"
	"strconv"
	"strings"
)

// parseQuote extracts price, delivery and warranty terms from plain text. It
// is the regex fallback behind the LLM extractor, so it only claims values it
// can anchor to an explicit keyword; a bare number in the body is never taken
// as a price.
func parseQuote(text, defaultCurrency string) ParsedQuote {
	q := ParsedQuote{Currency: detectCurrency(text, defaultCurrency)}

	if price, ok := parsePrice(text); ok {
		q.TotalPrice = &price
	}
	if days, ok := firstIntMatch(text, deliveryRegexes); ok {
		q.DeliveryDays = &days
	}
	if months, ok := parseWarrantyMonths(text); ok {
		q.WarrantyMonths = &months
	}

	return q
}

var (
	priceLineRe  = regexp.MustCompile(`(?i)(?:total|price|cost|amount|quot\w*|budget)[^\n]*`)
	priceAnchorRe = regexp.MustCompile(`(?i)(?:[$£€₹]|usd|eur|gbp|inr|rs\.?)\s*([\d,]+(?:\.\d+)?)`)
	numberRe     = regexp.MustCompile(`\d[\d,]*(?:\.\d+)?`)

	deliveryRegexes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)deliver\w*[^\n.]*?(\d{1,4})\s*(?:business\s+|working\s+)?days?`),
		regexp.MustCompile(`(?i)(\d{1,4})\s*(?:business\s+|working\s+)?days?[^\n.]*?deliver`),
		regexp.MustCompile(`(?i)lead\s*time[^\n.]*?(\d{1,4})\s*(?:business\s+|working\s+)?days?`),
		regexp.MustCompile(`(?i)ship\w*[^\n.]*?(?:within|in)\s+(\d{1,4})\s*(?:business\s+|working\s+)?days?`),
	}

	warrantyBeforeRe = regexp.MustCompile(`(?i)(\d{1,3})\s*[- ]?(month|year|yr)s?\b[^\n.]*?warrant`)
	warrantyAfterRe  = regexp.MustCompile(`(?i)warrant\w*[^\n.]*?(\d{1,3})\s*[- ]?(month|year|yr)s?\b`)
)

// detectCurrency looks for currency symbols and codes in the text, falling
// back to the supplied default (typically the RFP's currency).
func detectCurrency(text, defaultCurrency string) string {
	currency := defaultCurrency
	if currency == "" {
		currency = "USD"
	}

	textLower := strings.ToLower(text)
	switch {
	case strings.Contains(text, "₹") || strings.Contains(textLower, "inr") || strings.Contains(textLower, "rupee"):
		currency = "INR"
	case strings.Contains(text, "£") || strings.Contains(textLower, "gbp") || strings.Contains(textLower, "pound"):
		currency = "GBP"
	case strings.Contains(text, "€") || strings.Contains(textLower, "eur") || strings.Contains(textLower, "euro"):
		currency = "EUR"
	case strings.Contains(text, "$") || strings.Contains(textLower, "usd") || strings.Contains(textLower, "dollar"):
		currency = "USD"
	}
	return currency
}

// parsePrice finds the quoted total. Lines mentioning price/total/cost are
// scanned first; a currency-anchored number anywhere in the text is the
// fallback. When several candidates appear the largest wins, since itemized
// lines sum to the total.
func parsePrice(text string) (float64, bool) {
	var candidates []float64

	for _, line := range priceLineRe.FindAllString(text, -1) {
		for _, m := range numberRe.FindAllString(line, -1) {
			if v, ok := parseNumber(m); ok {
				candidates = append(candidates, v)
			}
		}
	}

	if len(candidates) == 0 {
		for _, m := range priceAnchorRe.FindAllStringSubmatch(text, -1) {
			if v, ok := parseNumber(m[1]); ok {
				candidates = append(candidates, v)
			}
		}
	}

	if len(candidates) == 0 {
		return 0, false
	}

	best := candidates[0]
	for _, v := range candidates[1:] {
		if v > best {
			best = v
		}
	}
	return best, true
}

func parseNumber(s string) (float64, bool) {
	clean := strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(clean, 64)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func firstIntMatch(text string, exprs []*regexp.Regexp) (int, bool) {
	for _, expr := range exprs {
		m := expr.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
			return v, true
		}
	}
	return 0, false
}

// parseWarrantyMonths matches "24-month warranty" and "warranty of 2 years"
// style phrases, converting years to months.
func parseWarrantyMonths(text string) (int, bool) {
	for _, expr := range []*regexp.Regexp{warrantyBeforeRe, warrantyAfterRe} {
		m := expr.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		v, err := strconv.Atoi(m[1])
		if err != nil || v <= 0 {
			continue
		}
		unit := strings.ToLower(m[2])
		if strings.HasPrefix(unit, "year") || strings.HasPrefix(unit, "yr") {
			v *= 12
		}
		return v, true
	}
	return 0, false
}
