package ingest

import (
	"context"
	"io"
	"time"
)

// InboundEmail is the raw message handed to the pipeline, before anything has
// been stored or interpreted.
type InboundEmail struct {
	From              string    `json:"from"`
	To                string    `json:"to"`
	Subject           string    `json:"subject"`
	BodyText          string    `json:"body_text"`
	BodyHTML          string    `json:"body_html,omitempty"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
	ReceivedAt        time.Time `json:"received_at,omitempty"`
}

// ParsedQuote holds the commercial terms extracted from an email. Every field
// is optional: vendors routinely omit terms, and a partially filled quote is
// still worth storing.
type ParsedQuote struct {
	TotalPrice     *float64 `json:"total_price,omitempty"`
	Currency       string   `json:"currency,omitempty"`
	DeliveryDays   *int     `json:"delivery_days,omitempty"`
	WarrantyMonths *int     `json:"warranty_months,omitempty"`
	Terms          string   `json:"terms,omitempty"`
	Notes          string   `json:"notes,omitempty"`
}

// Empty reports whether no commercial term was found at all.
func (q ParsedQuote) Empty() bool {
	return q.TotalPrice == nil && q.DeliveryDays == nil && q.WarrantyMonths == nil
}

// FetchedDocument represents the raw result of a fetch operation.
type FetchedDocument struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        io.ReadCloser
	FetchedAt   time.Time
	Headers     map[string][]string
}

// Fetcher retrieves raw content from a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchedDocument, error)
}
