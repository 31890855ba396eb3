// Package summary renders the human-readable outcome of a resolved session.
// Pure and deterministic given its inputs.
package summary

import (
	"fmt"

	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
)

// Result pairs the outcome text with the customer's display name.
type Result struct {
	Summary      string `json:"summary"`
	CustomerName string `json:"customerName"`
}

// Summarize describes what was done for the customer's issue.
func Summarize(issueType contractx.IssueType, res *contractx.Resolution, customerName string) Result {
	out := Result{CustomerName: customerName}
	if res == nil {
		out.Summary = "The case is still being processed."
		return out
	}

	switch issueType {
	case contractx.IssueFraud:
		out.Summary = fmt.Sprintf("A fraud alert was filed under case %s and the card has been locked.", res.CaseID)
	case contractx.IssueBillingDispute:
		if res.Amount != nil {
			out.Summary = fmt.Sprintf("A billing dispute for $%.2f was opened under %s.", *res.Amount, res.DisputeID)
		} else {
			out.Summary = fmt.Sprintf("A billing dispute was opened under %s.", res.DisputeID)
		}
	case contractx.IssueFeeWaiver:
		if res.Approved != nil && *res.Approved {
			out.Summary = fmt.Sprintf("The fee waiver was approved under ticket %s.", res.TicketID)
		} else {
			out.Summary = fmt.Sprintf("The fee waiver was denied; ticket %s records the request.", res.TicketID)
		}
	case contractx.IssueTransactionFlag:
		out.Summary = fmt.Sprintf("The transaction was flagged for review under ticket %s.", res.TicketID)
	default:
		out.Summary = fmt.Sprintf("The request was escalated to a human agent under ticket %s.", res.TicketID)
	}
	return out
}
