package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
)

// ProposalExtraction is the structured quote the LLM pulled out of a vendor
// email. Pointer fields stay nil when the email did not state the term.
type ProposalExtraction struct {
	TotalPrice     *float64 `json:"total_price"`
	Currency       string   `json:"currency"`
	DeliveryDays   *int     `json:"delivery_days"`
	WarrantyMonths *int     `json:"warranty_months"`
	PaymentTerms   string   `json:"payment_terms"`
	Notes          string   `json:"notes"`
}

// RfpExtraction is the structured requirement the LLM derived from a buyer's
// natural-language request.
type RfpExtraction struct {
	Title                 string                   `json:"title"`
	Budget                *float64                 `json:"budget"`
	Currency              string                   `json:"currency"`
	DeliveryDeadlineISO   string                   `json:"delivery_deadline_iso"`
	MinimumWarrantyMonths *int                     `json:"minimum_warranty_months"`
	PaymentTerms          string                   `json:"payment_terms"`
	Items                 []map[string]interface{} `json:"items"`
}

// ExtractProposalData uses the LLM to extract commercial terms from a vendor
// email. The caller supplies the subject for context; the body should already
// be plain text.
func (c *OllamaClient) ExtractProposalData(ctx context.Context, subject, body string) (*ProposalExtraction, error) {
	if len(body) > 8000 {
		body = body[:8000]
	}

	prompt := fmt.Sprintf(`You are a procurement analyst. Extract the commercial terms from the following vendor email into JSON.

Subject: %s
Body:
%s

Instructions:
1. total_price: the full quoted amount as a number, without currency symbols or thousands separators. null if not stated.
2. currency: 3-letter ISO code (USD, EUR, GBP, INR). null if not stated.
3. delivery_days: delivery or lead time in days as an integer. Convert weeks to days. null if not stated.
4. warranty_months: warranty period in months as an integer. Convert years to months. null if not stated.
5. payment_terms: payment terms exactly as stated (e.g. "Net 30"), or null.
6. notes: one short sentence with anything unusual (discounts, conditions), or null.
Never invent a value that is not in the email.

JSON Schema:
{
	"total_price": number or null,
	"currency": "string or null",
	"delivery_days": number or null,
	"warranty_months": number or null,
	"payment_terms": "string or null",
	"notes": "string or null"
}

Respond ONLY with the JSON object.`, subject, body)

	var out ProposalExtraction
	if err := c.generateJSON(ctx, prompt, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ExtractRfpSpec turns a buyer's free-text purchase request into a structured
// requirement. Used when an RFP is created from natural language.
func (c *OllamaClient) ExtractRfpSpec(ctx context.Context, text string) (*RfpExtraction, error) {
	if len(text) > 8000 {
		text = text[:8000]
	}

	prompt := fmt.Sprintf(`You are a procurement analyst. Convert the following purchase request into a structured JSON specification.

Request:
%s

Instructions:
1. title: a short title for the request, e.g. "Office Laptops Procurement".
2. budget: total budget as a number if stated, else null.
3. currency: 3-letter ISO code if stated or implied, else null.
4. delivery_deadline_iso: required delivery date as YYYY-MM-DD if stated, else null.
5. minimum_warranty_months: required warranty in months if stated, else null.
6. payment_terms: required payment terms if stated, else null.
7. items: one object per line item with "name", "quantity" and any stated specifications.
Never invent requirements that are not in the request.

JSON Schema:
{
	"title": "string",
	"budget": number or null,
	"currency": "string or null",
	"delivery_deadline_iso": "YYYY-MM-DD or null",
	"minimum_warranty_months": number or null,
	"payment_terms": "string or null",
	"items": [{"name": "string", "quantity": number}]
}

Respond ONLY with the JSON object.`, text)

	var out RfpExtraction
	if err := c.generateJSON(ctx, prompt, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// generateJSON runs the prompt in JSON mode first, then falls back to text
// mode with balanced-object extraction. Local models do not always honor the
// JSON format flag.
func (c *OllamaClient) generateJSON(ctx context.Context, prompt string, out interface{}) error {
	resp, err := c.GenerateCompletion(ctx, prompt, true)
	if err == nil {
		if parseErr := parseLLMResponse(resp, out); parseErr == nil {
			return nil
		} else {
			log.Printf("JSON mode failed parsing: %v. Retrying with text mode...", parseErr)
		}
	} else {
		log.Printf("JSON mode generation failed: %v. Retrying with text mode...", err)
	}

	resp, err = c.GenerateCompletion(ctx, prompt, false)
	if err != nil {
		return err
	}

	if err := parseLLMResponse(resp, out); err != nil {
		return fmt.Errorf("failed to parse LLM JSON after retry: %w (response: %s)", err, resp)
	}
	return nil
}

func parseLLMResponse(resp string, out interface{}) error {
	// Clean markdown code blocks
	cleaned := strings.TrimSpace(resp)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")

	if jsonStr, ok := extractFirstJSONObject(cleaned); ok {
		cleaned = jsonStr
	}

	return json.Unmarshal([]byte(cleaned), out)
}

// extractFirstJSONObject finds the first outermost balanced {...}
func extractFirstJSONObject(s string) (string, bool) {
	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false

	for i := start; i < len(s); i++ {
		char := s[i]

		if escaped {
			escaped = false
			continue
		}

		if char == '\\' {
			escaped = true
			continue
		}

		if char == '"' {
			inString = !inString
			continue
		}

		if !inString {
			if char == '{' {
				depth++
			} else if char == '}' {
				depth--
				if depth == 0 {
					return s[start : i+1], true
				}
			}
		}
	}

	return "", false
}
