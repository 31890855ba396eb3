package contract

import (
	"strings"
	"time"
)

// IssueType is the closed classification of a customer complaint.
type IssueType string

const (
	IssueFraud           IssueType = "fraud"
	IssueBillingDispute  IssueType = "billing_dispute"
	IssueFeeWaiver       IssueType = "fee_waiver"
	IssueTransactionFlag IssueType = "transaction_flag"
	IssueEscalation      IssueType = "escalation"
	IssueUnknown         IssueType = "unknown"
)

func (t IssueType) Valid() bool {
	switch t {
	case IssueFraud, IssueBillingDispute, IssueFeeWaiver, IssueTransactionFlag, IssueEscalation, IssueUnknown:
		return true
	}
	return false
}

// Label returns the human-readable form used in briefings and summaries.
func (t IssueType) Label() string {
	return strings.ReplaceAll(string(t), "_", " ")
}

// Classification is the deterministic output of the issue classifier.
type Classification struct {
	IssueType IssueType `json:"issueType"`
	Amount    *float64  `json:"amount,omitempty"`
	Merchant  string    `json:"merchant,omitempty"`
	CardLast4 string    `json:"cardLast4,omitempty"`
}

// Resolution is the structured outcome of the mock banking action.
// Which fields are populated depends on the issue type.
type Resolution struct {
	CaseID    string   `json:"caseId,omitempty"`
	DisputeID string   `json:"disputeId,omitempty"`
	TicketID  string   `json:"ticketId,omitempty"`
	Approved  *bool    `json:"approved,omitempty"`
	Escalated bool     `json:"escalated,omitempty"`
	Amount    *float64 `json:"amount,omitempty"`
	Detail    string   `json:"detail,omitempty"`
}

// Reference returns the identifier a client would show for this resolution,
// preferring case over dispute over ticket.
func (r Resolution) Reference() string {
	switch {
	case r.CaseID != "":
		return r.CaseID
	case r.DisputeID != "":
		return r.DisputeID
	default:
		return r.TicketID
	}
}

type Customer struct {
	ID            string        `json:"id"`
	Name          string        `json:"name"`
	Phone         string        `json:"phone,omitempty"`
	Last4SSN      string        `json:"last4Ssn,omitempty"`
	LastFeeWaiver *time.Time    `json:"lastFeeWaiverAt,omitempty"`
	Cards         []Card        `json:"cards,omitempty"`
	Transactions  []Transaction `json:"transactions,omitempty"`
}

// CardByLast4 returns the customer's card matching last4, or nil.
func (c *Customer) CardByLast4(last4 string) *Card {
	if c == nil {
		return nil
	}
	for i := range c.Cards {
		if c.Cards[i].Last4 == last4 {
			return &c.Cards[i]
		}
	}
	return nil
}

type Card struct {
	Last4       string `json:"last4"`
	FullNumber  string `json:"fullNumber,omitempty"`
	Issuer      string `json:"issuer,omitempty"`
	Nickname    string `json:"nickname,omitempty"`
	FraudLocked bool   `json:"fraudLocked"`
}

type Transaction struct {
	ID       string  `json:"id"`
	Merchant string  `json:"merchant"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
	Flagged  bool    `json:"flagged"`
}

// Transcription is the result of a speech-to-text call.
type Transcription struct {
	Text string `json:"text"`
}

// CreateCallRequest carries everything the telephony platform needs to place
// an outbound call. FirstMessage overrides the assistant's opening statement
// with the self-contained call briefing; Metadata correlates later webhook
// and polling updates back to the session.
type CreateCallRequest struct {
	AssistantID    string         `json:"assistantId"`
	CustomerNumber string         `json:"customerNumber"`
	PhoneNumberID  string         `json:"phoneNumberId,omitempty"`
	FirstMessage   string         `json:"firstMessage,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
}

// CallInfo is the platform's view of a call. The core only observes it.
type CallInfo struct {
	ID          string `json:"id"`
	Status      string `json:"status"`
	EndedReason string `json:"endedReason,omitempty"`
}
