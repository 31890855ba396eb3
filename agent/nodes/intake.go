// Package intakenode holds the steps of the voice-intake pipeline. Each
// function is one graph node: it validates its slice of the state, does one
// thing, and passes the state on.
package intakenode

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	classifyx "github.com/prachk/cardvoice-resolution-agent/agent/classify"
	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
	statex "github.com/prachk/cardvoice-resolution-agent/agent/state"
)

type IntakeInput struct {
	CustomerID   string `json:"customerId"`
	CardLast4    string `json:"cardLast4,omitempty"`
	Transcript   string `json:"transcript,omitempty"`
	AudioBase64  string `json:"audioBase64,omitempty"`
	MimeType     string `json:"mimeType,omitempty"`
	CallToNumber string `json:"callToNumber,omitempty"`
}

type IntakeState struct {
	Input IntakeInput
	Now   time.Time

	Transcript string
	SttUsed    bool

	Customer       *contractx.Customer
	CardLast4      string
	Classification contractx.Classification

	Session *statex.Session
}

// ValidateIntake rejects bad input before anything is mutated.
func ValidateIntake(in IntakeInput, nowFn func() time.Time) (*IntakeState, error) {
	in.CustomerID = strings.TrimSpace(in.CustomerID)
	in.Transcript = strings.TrimSpace(in.Transcript)

	if in.CustomerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", contractx.ErrValidation)
	}
	if in.Transcript == "" && in.AudioBase64 == "" {
		return nil, fmt.Errorf("%w: a transcript or audio payload is required", contractx.ErrValidation)
	}

	return &IntakeState{
		Input:      in,
		Now:        nowFn().UTC(),
		Transcript: in.Transcript,
	}, nil
}

// TranscribeAudio fills the transcript from audio when none was supplied
// directly. A supplied transcript always wins over the audio payload.
func TranscribeAudio(ctx context.Context, st *IntakeState, stt contractx.SpeechToText) (*IntakeState, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: intake state is nil", contractx.ErrValidation)
	}
	if st.Transcript != "" {
		return st, nil
	}
	if stt == nil {
		return nil, fmt.Errorf("%w: speech-to-text adapter", contractx.ErrConfiguration)
	}

	audio, err := base64.StdEncoding.DecodeString(st.Input.AudioBase64)
	if err != nil {
		return nil, fmt.Errorf("%w: audio payload is not valid base64", contractx.ErrValidation)
	}

	out, err := stt.Transcribe(ctx, audio, st.Input.MimeType)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(out.Text)
	if text == "" {
		return nil, fmt.Errorf("%w: transcription produced no text", contractx.ErrValidation)
	}

	st.Transcript = text
	st.SttUsed = true
	return st, nil
}

// ResolveCustomer looks up the customer and pins down which card the
// session is about. A missing card identifier falls back to the customer's
// first card; a supplied one must exist.
func ResolveCustomer(ctx context.Context, st *IntakeState, dir contractx.Directory) (*IntakeState, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: intake state is nil", contractx.ErrValidation)
	}

	customer, err := dir.GetCustomer(ctx, st.Input.CustomerID)
	if err != nil {
		return nil, err
	}

	last4 := strings.TrimSpace(st.Input.CardLast4)
	if last4 == "" {
		if len(customer.Cards) > 0 {
			last4 = customer.Cards[0].Last4
		}
	} else if customer.CardByLast4(last4) == nil {
		return nil, fmt.Errorf("%w: card ending %s for customer %s", contractx.ErrNotFound, last4, customer.ID)
	}

	st.Customer = customer
	st.CardLast4 = last4
	return st, nil
}

// ClassifyIssue runs the deterministic classifier over the transcript.
func ClassifyIssue(st *IntakeState) (*IntakeState, error) {
	if st == nil {
		return nil, fmt.Errorf("%w: intake state is nil", contractx.ErrValidation)
	}

	c, err := classifyx.Classify(st.Transcript, st.CardLast4)
	if err != nil {
		return nil, err
	}
	st.Classification = c
	return st, nil
}

// CreateSession materializes and persists the session for this run.
func CreateSession(ctx context.Context, st *IntakeState, store statex.Store, newID func() string) (*IntakeState, error) {
	if st == nil || st.Customer == nil {
		return nil, fmt.Errorf("%w: intake state is incomplete", contractx.ErrValidation)
	}

	sess := statex.NewSession(newID(), st.Customer.ID, st.CardLast4, st.Now)
	sess.CallToNumber = strings.TrimSpace(st.Input.CallToNumber)
	if err := sess.SetTranscript(st.Transcript); err != nil {
		return nil, err
	}
	if err := sess.SetIssue(st.Classification); err != nil {
		return nil, err
	}
	if err := store.Save(ctx, sess); err != nil {
		return nil, err
	}

	st.Session = sess
	return st, nil
}

// FinalizeIntake hands the persisted session back to the caller.
func FinalizeIntake(st *IntakeState) (*statex.Session, error) {
	if st == nil || st.Session == nil {
		return nil, fmt.Errorf("%w: intake produced no session", contractx.ErrValidation)
	}
	return st.Session, nil
}
