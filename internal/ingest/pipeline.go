package ingest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/david/rfp-desk/internal/ai"
	"github.com/david/rfp-desk/internal/models"
)

// Store is the slice of storage the email pipeline needs. Lookups return
// (nil, nil) when nothing matches; an error means the lookup itself failed.
type Store interface {
	GetRfp(ctx context.Context, id uuid.UUID) (*models.Rfp, error)
	SearchRfpByKeyword(ctx context.Context, keyword string) (*models.Rfp, error)
	GetVendorByEmail(ctx context.Context, email string) (*models.Vendor, error)
	CreateVendor(ctx context.Context, v *models.Vendor) error
	CreateProposal(ctx context.Context, p *models.Proposal) error
	CreateEmail(ctx context.Context, e *models.EmailMessage) error
	GetEmail(ctx context.Context, id uuid.UUID) (*models.EmailMessage, error)
	UpdateEmailStatus(ctx context.Context, id uuid.UUID, status models.EmailStatus, errorReason string) error
	LinkEmailToRfp(ctx context.Context, emailID, rfpID uuid.UUID) error
}

// Extractor pulls structured quote terms out of free text.
type Extractor interface {
	ExtractProposalData(ctx context.Context, subject, body string) (*ai.ProposalExtraction, error)
}

// Pipeline turns stored inbound email into proposals. AI may be nil; the
// regex fallback still runs, so the pipeline degrades rather than stops when
// the model is unavailable.
type Pipeline struct {
	Store   Store
	Fetcher Fetcher
	AI      Extractor
}

func NewPipeline(store Store, fetcher Fetcher, extractor Extractor) *Pipeline {
	if fetcher == nil {
		fetcher = NewHTTPFetcher()
	}
	return &Pipeline{
		Store:   store,
		Fetcher: fetcher,
		AI:      extractor,
	}
}

// ProcessEmail stores an inbound message and runs it through correlation and
// extraction. The returned message carries the final status; an error is only
// returned when storage itself fails. An email we cannot make sense of is an
// expected outcome, recorded as UNMATCHED or FAILED, not a pipeline error.
func (p *Pipeline) ProcessEmail(ctx context.Context, in InboundEmail) (*models.EmailMessage, error) {
	receivedAt := in.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now().UTC()
	}

	msg := &models.EmailMessage{
		ID:                uuid.New(),
		From:              sanitizeUTF8(in.From),
		To:                sanitizeUTF8(in.To),
		Subject:           sanitizeUTF8(cleanText(in.Subject)),
		BodyText:          sanitizeUTF8(in.BodyText),
		BodyHTML:          sanitizeHTML(sanitizeUTF8(in.BodyHTML)),
		Status:            models.EmailPending,
		ProviderMessageID: in.ProviderMessageID,
		ReceivedAt:        receivedAt,
	}
	if err := p.Store.CreateEmail(ctx, msg); err != nil {
		return nil, fmt.Errorf("store email: %w", err)
	}

	return p.process(ctx, msg)
}

// Reprocess runs a stored email through the pipeline again, e.g. after an RFP
// was created that its subject refers to.
func (p *Pipeline) Reprocess(ctx context.Context, emailID uuid.UUID) (*models.EmailMessage, error) {
	msg, err := p.Store.GetEmail(ctx, emailID)
	if err != nil {
		return nil, fmt.Errorf("load email: %w", err)
	}
	if msg == nil {
		return nil, fmt.Errorf("email %s not found", emailID)
	}
	// Already-parsed mail produced a proposal; running it again would
	// duplicate it.
	if msg.Status == models.EmailParsed {
		return msg, nil
	}
	return p.process(ctx, msg)
}

// AttachToRfp links an email to an RFP chosen by the buyer and finishes
// processing it. This is the manual escape hatch for UNMATCHED mail.
func (p *Pipeline) AttachToRfp(ctx context.Context, emailID, rfpID uuid.UUID) (*models.EmailMessage, error) {
	msg, err := p.Store.GetEmail(ctx, emailID)
	if err != nil {
		return nil, fmt.Errorf("load email: %w", err)
	}
	if msg == nil {
		return nil, fmt.Errorf("email %s not found", emailID)
	}

	rfp, err := p.Store.GetRfp(ctx, rfpID)
	if err != nil {
		return nil, fmt.Errorf("load rfp: %w", err)
	}
	if rfp == nil {
		return nil, fmt.Errorf("rfp %s not found", rfpID)
	}

	return p.attach(ctx, msg, rfp)
}

func (p *Pipeline) process(ctx context.Context, msg *models.EmailMessage) (*models.EmailMessage, error) {
	rfp, err := p.resolveRfp(ctx, msg.Subject)
	if err != nil {
		return p.fail(ctx, msg, fmt.Sprintf("rfp lookup failed: %v", err))
	}
	if rfp == nil {
		log.Printf("email %s: no RFP matched for subject %q", msg.ID, msg.Subject)
		return p.finish(ctx, msg, models.EmailUnmatched, "no matching RFP for subject")
	}

	return p.attach(ctx, msg, rfp)
}

func (p *Pipeline) attach(ctx context.Context, msg *models.EmailMessage, rfp *models.Rfp) (*models.EmailMessage, error) {
	vendor, err := p.resolveVendor(ctx, msg.From)
	if err != nil {
		return p.fail(ctx, msg, fmt.Sprintf("vendor lookup failed: %v", err))
	}

	body := strings.TrimSpace(msg.BodyText)
	if body == "" && msg.BodyHTML != "" {
		body = HTMLToText(msg.BodyHTML)
	}

	// Linked quote documents often carry the real terms while the body is a
	// one-line greeting.
	for _, link := range findPDFLinks(msg.BodyHTML) {
		text, err := fetchPDFText(ctx, p.Fetcher, link)
		if err != nil {
			log.Printf("email %s: pdf %s skipped: %v", msg.ID, link, err)
			continue
		}
		body = body + "\n" + text
	}

	quote := p.extractQuote(ctx, msg.Subject, body, rfp.Currency)
	notes := quote.Notes
	if quote.Empty() {
		notes = strings.TrimSpace(notes + " no commercial terms detected; review the original email")
	}

	now := time.Now().UTC()
	proposal := &models.Proposal{
		ID:             uuid.New(),
		RfpID:          rfp.ID,
		VendorID:       vendor.ID,
		TotalPrice:     quote.TotalPrice,
		Currency:       quote.Currency,
		DeliveryDays:   quote.DeliveryDays,
		WarrantyMonths: quote.WarrantyMonths,
		Terms:          quote.Terms,
		Notes:          notes,
		Source:         models.SourceEmail,
		EmailID:        &msg.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := p.Store.CreateProposal(ctx, proposal); err != nil {
		return p.fail(ctx, msg, fmt.Sprintf("store proposal: %v", err))
	}
	if err := p.Store.LinkEmailToRfp(ctx, msg.ID, rfp.ID); err != nil {
		return p.fail(ctx, msg, fmt.Sprintf("link email to rfp: %v", err))
	}

	msg.RfpID = &rfp.ID
	log.Printf("email %s: proposal %s created for rfp %q from vendor %s", msg.ID, proposal.ID, rfp.Title, vendor.Email)
	return p.finish(ctx, msg, models.EmailParsed, "")
}

// resolveRfp maps a subject line to a stored RFP. An explicit tag that does
// not parse as an ID is retried as a keyword, since vendors mangle tags.
func (p *Pipeline) resolveRfp(ctx context.Context, subject string) (*models.Rfp, error) {
	ref := CorrelateSubject(subject)
	switch ref.Kind {
	case MatchExact:
		if id, err := uuid.Parse(ref.RfpID); err == nil {
			rfp, err := p.Store.GetRfp(ctx, id)
			if err != nil {
				return nil, err
			}
			if rfp != nil {
				return rfp, nil
			}
		}
		return p.Store.SearchRfpByKeyword(ctx, ref.RfpID)
	case MatchKeyword:
		return p.Store.SearchRfpByKeyword(ctx, ref.Keyword)
	default:
		return nil, nil
	}
}

// resolveVendor finds the sender by normalized address, provisioning a vendor
// record on first contact so no proposal is dropped for missing master data.
func (p *Pipeline) resolveVendor(ctx context.Context, from string) (*models.Vendor, error) {
	addr := ExtractAddress(from)
	if addr == "" || !strings.Contains(addr, "@") {
		return nil, fmt.Errorf("unusable from address %q", from)
	}

	vendor, err := p.Store.GetVendorByEmail(ctx, addr)
	if err != nil {
		return nil, err
	}
	if vendor != nil {
		return vendor, nil
	}

	now := time.Now().UTC()
	vendor = &models.Vendor{
		ID:        uuid.New(),
		Name:      ExtractDisplayName(from),
		Email:     addr,
		Notes:     "auto-provisioned from inbound email",
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := p.Store.CreateVendor(ctx, vendor); err != nil {
		return nil, err
	}
	log.Printf("auto-provisioned vendor %q (%s)", vendor.Name, vendor.Email)
	return vendor, nil
}

// extractQuote runs the LLM extractor when available and backfills anything
// it left out from the regex parser.
func (p *Pipeline) extractQuote(ctx context.Context, subject, body, defaultCurrency string) ParsedQuote {
	fallback := parseQuote(body, defaultCurrency)

	if p.AI == nil {
		return fallback
	}

	extracted, err := p.AI.ExtractProposalData(ctx, subject, body)
	if err != nil {
		log.Printf("LLM extraction failed, using regex fallback: %v", err)
		return fallback
	}

	quote := ParsedQuote{
		TotalPrice:     extracted.TotalPrice,
		Currency:       strings.ToUpper(strings.TrimSpace(extracted.Currency)),
		DeliveryDays:   extracted.DeliveryDays,
		WarrantyMonths: extracted.WarrantyMonths,
		Terms:          extracted.PaymentTerms,
		Notes:          extracted.Notes,
	}
	if quote.TotalPrice == nil {
		quote.TotalPrice = fallback.TotalPrice
	}
	if quote.DeliveryDays == nil {
		quote.DeliveryDays = fallback.DeliveryDays
	}
	if quote.WarrantyMonths == nil {
		quote.WarrantyMonths = fallback.WarrantyMonths
	}
	if quote.Currency == "" {
		quote.Currency = fallback.Currency
	}
	return quote
}

func (p *Pipeline) finish(ctx context.Context, msg *models.EmailMessage, status models.EmailStatus, reason string) (*models.EmailMessage, error) {
	if err := p.Store.UpdateEmailStatus(ctx, msg.ID, status, reason); err != nil {
		return nil, fmt.Errorf("update email status: %w", err)
	}
	msg.Status = status
	msg.ErrorReason = reason
	return msg, nil
}

func (p *Pipeline) fail(ctx context.Context, msg *models.EmailMessage, reason string) (*models.EmailMessage, error) {
	log.Printf("email %s failed: %s", msg.ID, reason)
	return p.finish(ctx, msg, models.EmailFailed, reason)
}
