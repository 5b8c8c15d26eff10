package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/david/rfp-desk/internal/ai"
	"github.com/david/rfp-desk/internal/models"
)

type fakeStore struct {
	rfps      map[uuid.UUID]*models.Rfp
	vendors   map[string]*models.Vendor
	emails    map[uuid.UUID]*models.EmailMessage
	proposals []*models.Proposal

	createdVendors int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rfps:    make(map[uuid.UUID]*models.Rfp),
		vendors: make(map[string]*models.Vendor),
		emails:  make(map[uuid.UUID]*models.EmailMessage),
	}
}

func (s *fakeStore) GetRfp(_ context.Context, id uuid.UUID) (*models.Rfp, error) {
	return s.rfps[id], nil
}

func (s *fakeStore) SearchRfpByKeyword(_ context.Context, keyword string) (*models.Rfp, error) {
	needle := strings.ToLower(keyword)
	for _, rfp := range s.rfps {
		if strings.Contains(strings.ToLower(rfp.Title), needle) {
			return rfp, nil
		}
	}
	return nil, nil
}

func (s *fakeStore) GetVendorByEmail(_ context.Context, email string) (*models.Vendor, error) {
	return s.vendors[email], nil
}

func (s *fakeStore) CreateVendor(_ context.Context, v *models.Vendor) error {
	s.vendors[v.Email] = v
	s.createdVendors++
	return nil
}

func (s *fakeStore) CreateProposal(_ context.Context, p *models.Proposal) error {
	s.proposals = append(s.proposals, p)
	return nil
}

func (s *fakeStore) CreateEmail(_ context.Context, e *models.EmailMessage) error {
	s.emails[e.ID] = e
	return nil
}

func (s *fakeStore) GetEmail(_ context.Context, id uuid.UUID) (*models.EmailMessage, error) {
	return s.emails[id], nil
}

func (s *fakeStore) UpdateEmailStatus(_ context.Context, id uuid.UUID, status models.EmailStatus, errorReason string) error {
	if e, ok := s.emails[id]; ok {
		e.Status = status
		e.ErrorReason = errorReason
	}
	return nil
}

func (s *fakeStore) LinkEmailToRfp(_ context.Context, emailID, rfpID uuid.UUID) error {
	if e, ok := s.emails[emailID]; ok {
		e.RfpID = &rfpID
	}
	return nil
}

type fakeExtractor struct {
	result *ai.ProposalExtraction
	err    error
	calls  int
}

func (f *fakeExtractor) ExtractProposalData(_ context.Context, _, _ string) (*ai.ProposalExtraction, error) {
	f.calls++
	return f.result, f.err
}

func seedRfp(s *fakeStore, title string) *models.Rfp {
	rfp := &models.Rfp{
		ID:        uuid.New(),
		Title:     title,
		Currency:  "USD",
		CreatedAt: time.Now().UTC(),
	}
	s.rfps[rfp.ID] = rfp
	return rfp
}

func TestProcessEmailExactIDTag(t *testing.T) {
	store := newFakeStore()
	rfp := seedRfp(store, "Office Laptops Procurement")
	p := NewPipeline(store, nil, nil)

	msg, err := p.ProcessEmail(context.Background(), InboundEmail{
		From:     "Lenovo India <sales@lenovo.example.com>",
		To:       "procurement@rfpdesk.example.com",
		Subject:  "RFPID: " + rfp.ID.String(),
		BodyText: "Total price: $48,000. Delivery within 25 days. 12-month warranty.",
	})
	if err != nil {
		t.Fatalf("ProcessEmail() error = %v", err)
	}

	if msg.Status != models.EmailParsed {
		t.Fatalf("status = %s, want %s (reason %q)", msg.Status, models.EmailParsed, msg.ErrorReason)
	}
	if msg.RfpID == nil || *msg.RfpID != rfp.ID {
		t.Errorf("RfpID = %v, want %s", msg.RfpID, rfp.ID)
	}
	if len(store.proposals) != 1 {
		t.Fatalf("got %d proposals, want 1", len(store.proposals))
	}

	prop := store.proposals[0]
	if prop.RfpID != rfp.ID {
		t.Errorf("proposal RfpID = %s, want %s", prop.RfpID, rfp.ID)
	}
	if prop.Source != models.SourceEmail {
		t.Errorf("proposal source = %s, want %s", prop.Source, models.SourceEmail)
	}
	if prop.TotalPrice == nil || *prop.TotalPrice != 48000 {
		t.Errorf("TotalPrice = %v, want 48000", prop.TotalPrice)
	}
	if prop.DeliveryDays == nil || *prop.DeliveryDays != 25 {
		t.Errorf("DeliveryDays = %v, want 25", prop.DeliveryDays)
	}
	if prop.WarrantyMonths == nil || *prop.WarrantyMonths != 12 {
		t.Errorf("WarrantyMonths = %v, want 12", prop.WarrantyMonths)
	}
	if prop.EmailID == nil || *prop.EmailID != msg.ID {
		t.Errorf("EmailID = %v, want %s", prop.EmailID, msg.ID)
	}

	vendor, ok := store.vendors["sales@lenovo.example.com"]
	if !ok {
		t.Fatal("vendor was not auto-provisioned")
	}
	if vendor.Name != "Lenovo India" {
		t.Errorf("vendor name = %q, want %q", vendor.Name, "Lenovo India")
	}
}

func TestProcessEmailKeywordMatch(t *testing.T) {
	store := newFakeStore()
	rfp := seedRfp(store, "Procurement of 20 Business Laptops")
	p := NewPipeline(store, nil, nil)

	msg, err := p.ProcessEmail(context.Background(), InboundEmail{
		From:     "dell.vendor@example.com",
		Subject:  "Re: Proposal for Procurement of 20 Business Laptops",
		BodyText: "We quote a total of USD 52,000. Delivery in 20 business days with a warranty of 2 years.",
	})
	if err != nil {
		t.Fatalf("ProcessEmail() error = %v", err)
	}

	if msg.Status != models.EmailParsed {
		t.Fatalf("status = %s, want %s", msg.Status, models.EmailParsed)
	}
	if msg.RfpID == nil || *msg.RfpID != rfp.ID {
		t.Errorf("RfpID = %v, want %s", msg.RfpID, rfp.ID)
	}
	prop := store.proposals[0]
	if prop.TotalPrice == nil || *prop.TotalPrice != 52000 {
		t.Errorf("TotalPrice = %v, want 52000", prop.TotalPrice)
	}
	if prop.WarrantyMonths == nil || *prop.WarrantyMonths != 24 {
		t.Errorf("WarrantyMonths = %v, want 24", prop.WarrantyMonths)
	}
}

func TestProcessEmailUnmatched(t *testing.T) {
	store := newFakeStore()
	seedRfp(store, "Office Chairs Bulk Order")
	p := NewPipeline(store, nil, nil)

	msg, err := p.ProcessEmail(context.Background(), InboundEmail{
		From:     "someone@example.com",
		Subject:  "Hi",
		BodyText: "Just checking in.",
	})
	if err != nil {
		t.Fatalf("ProcessEmail() error = %v", err)
	}

	if msg.Status != models.EmailUnmatched {
		t.Errorf("status = %s, want %s", msg.Status, models.EmailUnmatched)
	}
	if msg.RfpID != nil {
		t.Errorf("RfpID = %v, want nil", msg.RfpID)
	}
	if len(store.proposals) != 0 {
		t.Errorf("got %d proposals, want 0", len(store.proposals))
	}
	if store.createdVendors != 0 {
		t.Errorf("provisioned %d vendors for unmatched mail, want 0", store.createdVendors)
	}
}

func TestProcessEmailReusesKnownVendor(t *testing.T) {
	store := newFakeStore()
	seedRfp(store, "27-inch Monitors Purchase")
	existing := &models.Vendor{ID: uuid.New(), Name: "HP Enterprise", Email: "hp.vendor@example.com"}
	store.vendors[existing.Email] = existing
	p := NewPipeline(store, nil, nil)

	_, err := p.ProcessEmail(context.Background(), InboundEmail{
		From:     "HP Sales <HP.Vendor@Example.com>",
		Subject:  "RFP: 27-inch Monitors Purchase",
		BodyText: "Total cost: $15,000.",
	})
	if err != nil {
		t.Fatalf("ProcessEmail() error = %v", err)
	}

	if store.createdVendors != 0 {
		t.Errorf("provisioned %d vendors, want reuse of existing", store.createdVendors)
	}
	if store.proposals[0].VendorID != existing.ID {
		t.Errorf("proposal vendor = %s, want %s", store.proposals[0].VendorID, existing.ID)
	}
}

func TestProcessEmailLLMFirstRegexBackfill(t *testing.T) {
	store := newFakeStore()
	seedRfp(store, "Office Laptops Procurement")

	price := 47500.0
	extractor := &fakeExtractor{result: &ai.ProposalExtraction{
		TotalPrice:   &price,
		Currency:     "usd",
		PaymentTerms: "Net 30",
	}}
	p := NewPipeline(store, nil, extractor)

	_, err := p.ProcessEmail(context.Background(), InboundEmail{
		From:     "acer.sales@example.com",
		Subject:  "Quote: Office Laptops Procurement",
		BodyText: "Price as discussed. Delivery within 30 days. 12-month warranty.",
	})
	if err != nil {
		t.Fatalf("ProcessEmail() error = %v", err)
	}

	if extractor.calls != 1 {
		t.Fatalf("extractor called %d times, want 1", extractor.calls)
	}
	prop := store.proposals[0]
	if prop.TotalPrice == nil || *prop.TotalPrice != price {
		t.Errorf("TotalPrice = %v, want %v from the LLM", prop.TotalPrice, price)
	}
	if prop.Currency != "USD" {
		t.Errorf("Currency = %q, want normalized %q", prop.Currency, "USD")
	}
	if prop.Terms != "Net 30" {
		t.Errorf("Terms = %q, want %q", prop.Terms, "Net 30")
	}
	// The model skipped delivery and warranty; the regex parser fills them.
	if prop.DeliveryDays == nil || *prop.DeliveryDays != 30 {
		t.Errorf("DeliveryDays = %v, want regex backfill 30", prop.DeliveryDays)
	}
	if prop.WarrantyMonths == nil || *prop.WarrantyMonths != 12 {
		t.Errorf("WarrantyMonths = %v, want regex backfill 12", prop.WarrantyMonths)
	}
}

func TestProcessEmailLLMErrorFallsBackToRegex(t *testing.T) {
	store := newFakeStore()
	seedRfp(store, "Office Laptops Procurement")
	extractor := &fakeExtractor{err: errors.New("model unavailable")}
	p := NewPipeline(store, nil, extractor)

	msg, err := p.ProcessEmail(context.Background(), InboundEmail{
		From:     "asus.supplies@example.com",
		Subject:  "Bid: Office Laptops Procurement",
		BodyText: "Total price: $49,900. Delivery in 15 days.",
	})
	if err != nil {
		t.Fatalf("ProcessEmail() error = %v", err)
	}

	if msg.Status != models.EmailParsed {
		t.Fatalf("status = %s, want %s", msg.Status, models.EmailParsed)
	}
	prop := store.proposals[0]
	if prop.TotalPrice == nil || *prop.TotalPrice != 49900 {
		t.Errorf("TotalPrice = %v, want regex fallback 49900", prop.TotalPrice)
	}
}

func TestAttachToRfpResolvesUnmatchedEmail(t *testing.T) {
	store := newFakeStore()
	rfp := seedRfp(store, "Office Chairs Bulk Order")
	p := NewPipeline(store, nil, nil)

	msg, err := p.ProcessEmail(context.Background(), InboundEmail{
		From:     "chairs@example.com",
		Subject:  "Hi",
		BodyText: "Total price: $20,000 with a 36-month warranty.",
	})
	if err != nil {
		t.Fatalf("ProcessEmail() error = %v", err)
	}
	if msg.Status != models.EmailUnmatched {
		t.Fatalf("setup: status = %s, want %s", msg.Status, models.EmailUnmatched)
	}

	linked, err := p.AttachToRfp(context.Background(), msg.ID, rfp.ID)
	if err != nil {
		t.Fatalf("AttachToRfp() error = %v", err)
	}

	if linked.Status != models.EmailParsed {
		t.Errorf("status = %s, want %s", linked.Status, models.EmailParsed)
	}
	if linked.RfpID == nil || *linked.RfpID != rfp.ID {
		t.Errorf("RfpID = %v, want %s", linked.RfpID, rfp.ID)
	}
	if len(store.proposals) != 1 {
		t.Fatalf("got %d proposals, want 1", len(store.proposals))
	}
	prop := store.proposals[0]
	if prop.WarrantyMonths == nil || *prop.WarrantyMonths != 36 {
		t.Errorf("WarrantyMonths = %v, want 36", prop.WarrantyMonths)
	}
}

func TestReprocessParsedEmailIsIdempotent(t *testing.T) {
	store := newFakeStore()
	rfp := seedRfp(store, "Office Laptops Procurement")
	p := NewPipeline(store, nil, nil)

	msg, err := p.ProcessEmail(context.Background(), InboundEmail{
		From:     "vendor@example.com",
		Subject:  "RFPID: " + rfp.ID.String(),
		BodyText: "Total price: $48,000.",
	})
	if err != nil {
		t.Fatalf("ProcessEmail() error = %v", err)
	}
	if msg.Status != models.EmailParsed {
		t.Fatalf("setup: status = %s, want %s", msg.Status, models.EmailParsed)
	}

	again, err := p.Reprocess(context.Background(), msg.ID)
	if err != nil {
		t.Fatalf("Reprocess() error = %v", err)
	}
	if again.Status != models.EmailParsed {
		t.Errorf("status = %s, want %s", again.Status, models.EmailParsed)
	}
	if len(store.proposals) != 1 {
		t.Errorf("got %d proposals after reprocess, want 1", len(store.proposals))
	}
}

func TestAttachToRfpUnknownEmail(t *testing.T) {
	store := newFakeStore()
	rfp := seedRfp(store, "Anything")
	p := NewPipeline(store, nil, nil)

	if _, err := p.AttachToRfp(context.Background(), uuid.New(), rfp.ID); err == nil {
		t.Error("expected error for unknown email id")
	}
}
