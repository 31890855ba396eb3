package state

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
)

var (
	ErrFieldConflict  = errors.New("session field already set to a different value")
	ErrInvalidSession = errors.New("session id is empty")
)

// Session is one end-to-end run of the resolution workflow. Every field is
// append-once: it moves from unset to exactly one value and never changes
// again. Re-setting the same value is a no-op; setting a different value
// after the first write fails with ErrFieldConflict. The one exception is
// ProviderStatus, which advances monotonically through the status order and
// never regresses.
type Session struct {
	SessionID  string `json:"session_id"`
	CustomerID string `json:"customer_id"`
	CardLast4  string `json:"card_last4"`

	Transcript string                   `json:"transcript,omitempty"`
	IssueType  contractx.IssueType      `json:"issue_type,omitempty"`
	Fields     contractx.Classification `json:"fields,omitempty"`

	Resolution *contractx.Resolution `json:"resolution,omitempty"`
	CallID     string                `json:"call_id,omitempty"`

	ProviderStatus string `json:"provider_status,omitempty"`
	Summary        string `json:"summary,omitempty"`

	CallToNumber string `json:"call_to_number,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(sessionID, customerID, cardLast4 string, now time.Time) *Session {
	return &Session{
		SessionID:  sessionID,
		CustomerID: customerID,
		CardLast4:  cardLast4,
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

func setOnce(name, current, next string) (string, error) {
	next = strings.TrimSpace(next)
	if current == "" {
		return next, nil
	}
	if current == next {
		return current, nil
	}
	return current, fmt.Errorf("%w: %s", ErrFieldConflict, name)
}

func (s *Session) SetTranscript(text string) error {
	v, err := setOnce("transcript", s.Transcript, text)
	if err != nil {
		return err
	}
	s.Transcript = v
	return nil
}

func (s *Session) SetIssue(c contractx.Classification) error {
	if s.IssueType == "" {
		s.IssueType = c.IssueType
		s.Fields = c
		return nil
	}
	if s.IssueType == c.IssueType && reflect.DeepEqual(s.Fields, c) {
		return nil
	}
	return fmt.Errorf("%w: issue_type", ErrFieldConflict)
}

func (s *Session) SetResolution(r contractx.Resolution) error {
	if s.Resolution == nil {
		cp := r
		s.Resolution = &cp
		return nil
	}
	if reflect.DeepEqual(*s.Resolution, r) {
		return nil
	}
	return fmt.Errorf("%w: resolution", ErrFieldConflict)
}

func (s *Session) SetCallID(id string) error {
	v, err := setOnce("call_id", s.CallID, id)
	if err != nil {
		return err
	}
	s.CallID = v
	return nil
}

func (s *Session) SetSummary(text string) error {
	v, err := setOnce("summary", s.Summary, text)
	if err != nil {
		return err
	}
	s.Summary = v
	return nil
}

// AdvanceProviderStatus merges a raw provider status into the session,
// keeping whichever status ranks highest in the total order. It returns the
// status now recorded. Lower-ranked or duplicate updates are ignored, which
// makes any interleaving of polling and webhook updates safe.
func (s *Session) AdvanceProviderStatus(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return s.ProviderStatus
	}
	if s.ProviderStatus == "" || contractx.StatusRank(raw) > contractx.StatusRank(s.ProviderStatus) {
		s.ProviderStatus = raw
	}
	return s.ProviderStatus
}

// Terminal reports whether the workflow run is finished: either a resolution
// exists with no call placed, or the placed call reached its terminal status.
func (s *Session) Terminal() bool {
	if s.CallID == "" {
		return s.Resolution != nil
	}
	return contractx.StatusTerminal(s.ProviderStatus)
}

func (s *Session) Validate() error {
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	if s.IssueType != "" && !s.IssueType.Valid() {
		return fmt.Errorf("unknown issue type %q", s.IssueType)
	}
	return nil
}
