package models

import (
	"time"

	"github.com/google/uuid"
)

// EmailStatus is the processing state of an inbound email.
type EmailStatus string

const (
	// EmailPending has been stored but not yet run through the pipeline.
	EmailPending EmailStatus = "PENDING"
	// EmailParsed produced a proposal attached to an RFP.
	EmailParsed EmailStatus = "PARSED"
	// EmailUnmatched could not be resolved to an RFP and waits for manual linking.
	EmailUnmatched EmailStatus = "UNMATCHED"
	// EmailIgnored was deliberately skipped (e.g. auto-replies).
	EmailIgnored EmailStatus = "IGNORED"
	// EmailFailed hit a processing error; ErrorReason says what.
	EmailFailed EmailStatus = "FAILED"
)

// EmailMessage is an inbound email as received from a mailbox provider.
type EmailMessage struct {
	ID                uuid.UUID   `json:"id"`
	From              string      `json:"from"`
	To                string      `json:"to"`
	Subject           string      `json:"subject"`
	BodyText          string      `json:"body_text"`
	BodyHTML          string      `json:"body_html,omitempty"`
	Status            EmailStatus `json:"status"`
	ProviderMessageID string      `json:"provider_message_id,omitempty"`
	RfpID             *uuid.UUID  `json:"rfp_id,omitempty"`
	ErrorReason       string      `json:"error_reason,omitempty"`
	ReceivedAt        time.Time   `json:"received_at"`
	CreatedAt         time.Time   `json:"created_at"`
}
