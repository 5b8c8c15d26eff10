// Package ingest turns inbound vendor email into proposals: it correlates a
// message with the RFP it answers, extracts the quoted terms, and records the
// outcome. The correlation heuristics are pure functions; the pipeline around
// them does the I/O.
package ingest

import (
	"regexp"
	"strings"
)

// MatchKind discriminates how a subject line referenced an RFP.
type MatchKind string

const (
	// MatchExact means the subject carried an explicit RFPID tag.
	MatchExact MatchKind = "exact"
	// MatchKeyword means the subject yielded a phrase for fuzzy title lookup.
	MatchKeyword MatchKind = "keyword"
	// MatchNone means nothing usable was found.
	MatchNone MatchKind = "none"
)

// RfpReference is the correlator's verdict on one subject line. A keyword
// reference is advisory: the lookup it feeds may legitimately resolve to
// nothing, which is not a correlator failure.
type RfpReference struct {
	Kind    MatchKind `json:"kind"`
	RfpID   string    `json:"rfp_id,omitempty"`
	Keyword string    `json:"keyword,omitempty"`
}

// IsNone reports whether the reference carries no match intent.
func (r RfpReference) IsNone() bool { return r.Kind == MatchNone }

var (
	replyPrefixRe = regexp.MustCompile(`(?i)^(re|fwd?):\s*`)
	rfpIDTagRe    = regexp.MustCompile(`(?i)\bRFPID\s*[:\-]\s*([a-zA-Z0-9-]+)`)
	rfpTagRe      = regexp.MustCompile(`(?i)\bRFP\s*[:\-]\s*(.+)$`)
	quoteForRe    = regexp.MustCompile(`(?i)^(proposal|quote|bid)\s+for\s+`)
	quoteSepRe    = regexp.MustCompile(`(?i)^(proposal|quote|bid)\s*[:\-]\s*`)
)

// minKeywordLen rejects fallback keywords too short to search for.
const minKeywordLen = 3

// subjectMatchers run in precedence order; the first hit wins. Explicit
// identifiers must beat every keyword heuristic, and tag matchers look at the
// raw subject so a reply prefix cannot mask a tag.
var subjectMatchers = []func(original, cleaned string) (RfpReference, bool){
	matchExplicitID,
	matchRfpTag,
	matchLooseKeyword,
}

// CorrelateSubject derives an RFP reference from an email subject. It is a
// total function: any input, including the empty string, yields a verdict.
func CorrelateSubject(subject string) RfpReference {
	if strings.TrimSpace(subject) == "" {
		return RfpReference{Kind: MatchNone}
	}

	cleaned := strings.TrimSpace(replyPrefixRe.ReplaceAllString(subject, ""))

	for _, match := range subjectMatchers {
		if ref, ok := match(subject, cleaned); ok {
			return ref
		}
	}
	return RfpReference{Kind: MatchNone}
}

func matchExplicitID(original, _ string) (RfpReference, bool) {
	m := rfpIDTagRe.FindStringSubmatch(original)
	if m == nil || m[1] == "" {
		return RfpReference{}, false
	}
	return RfpReference{Kind: MatchExact, RfpID: m[1]}, true
}

func matchRfpTag(original, _ string) (RfpReference, bool) {
	m := rfpTagRe.FindStringSubmatch(original)
	if m == nil {
		return RfpReference{}, false
	}
	keyword := strings.TrimSpace(m[1])
	if keyword == "" {
		return RfpReference{}, false
	}
	return RfpReference{Kind: MatchKeyword, Keyword: keyword}, true
}

// matchLooseKeyword strips a "proposal for" style prefix from the cleaned
// subject and treats the remainder as a title keyword. Vendors rarely keep
// structured tags when replying, so this is the graceful-degradation path.
func matchLooseKeyword(_, cleaned string) (RfpReference, bool) {
	stripped := quoteForRe.ReplaceAllString(cleaned, "")
	stripped = quoteSepRe.ReplaceAllString(stripped, "")
	stripped = strings.TrimSpace(stripped)
	if len(stripped) < minKeywordLen {
		return RfpReference{}, false
	}
	return RfpReference{Kind: MatchKeyword, Keyword: stripped}, true
}
