// Package classify maps a complaint transcript to an issue type and pulls
// out the structured fields the action executor needs. Classification is
// pure and deterministic: keyword tables checked in urgency order, no
// external calls.
package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
)

// Keyword tables per issue type. When a transcript matches more than one
// table, the first match in this order wins: the order reflects urgency,
// not confidence.
var rules = []struct {
	issue    contractx.IssueType
	keywords []string
}{
	{contractx.IssueFraud, []string{
		"fraud", "stolen", "unauthorized", "without my permission",
		"without permission", "someone used", "didn't make", "did not make",
		"never made", "identity theft",
	}},
	{contractx.IssueBillingDispute, []string{
		"dispute", "overcharg", "double charg", "charged twice",
		"billed twice", "wrong amount", "incorrect charge",
	}},
	{contractx.IssueFeeWaiver, []string{
		"waive", "waiver", "annual fee", "late fee", "interest charge",
		"refund the fee", "fee refund",
	}},
	{contractx.IssueTransactionFlag, []string{
		"suspicious", "don't recognize", "do not recognize", "flag",
		"verify a charge", "strange charge",
	}},
	{contractx.IssueEscalation, []string{
		"manager", "supervisor", "human", "representative", "real person",
		"speak to someone",
	}},
}

var (
	amountPattern   = regexp.MustCompile(`\$\s*(\d+(?:\.\d{1,2})?)|(\d+(?:\.\d{1,2})?)\s*dollars`)
	merchantPattern = regexp.MustCompile(`(?i)(?:\bat\b|\bfrom\b)\s+([A-Z][A-Za-z0-9&'-]*(?:\s+[A-Z][A-Za-z0-9&'-]*)*)`)
	last4Pattern    = regexp.MustCompile(`(?i)ending(?:\s+in)?\s+(\d{4})`)
)

// Classify inspects transcript text and returns the issue type plus any
// extracted fields. candidateLast4, when supplied by the caller, takes
// precedence over a card number found in the text. An empty transcript is
// rejected before any session mutation.
func Classify(transcript, candidateLast4 string) (contractx.Classification, error) {
	text := strings.TrimSpace(transcript)
	if text == "" {
		return contractx.Classification{}, fmt.Errorf("%w: transcript is empty", contractx.ErrValidation)
	}

	lowered := strings.ToLower(text)
	out := contractx.Classification{IssueType: contractx.IssueUnknown}

	for _, rule := range rules {
		if matchesAny(lowered, rule.keywords) {
			out.IssueType = rule.issue
			break
		}
	}

	out.Amount = extractAmount(text)
	out.Merchant = extractMerchant(text)
	out.CardLast4 = strings.TrimSpace(candidateLast4)
	if out.CardLast4 == "" {
		if m := last4Pattern.FindStringSubmatch(text); m != nil {
			out.CardLast4 = m[1]
		}
	}

	return out, nil
}

func matchesAny(lowered string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

func extractAmount(text string) *float64 {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	raw := m[1]
	if raw == "" {
		raw = m[2]
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &v
}

func extractMerchant(text string) string {
	m := merchantPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.TrimSpace(m[1])
}
