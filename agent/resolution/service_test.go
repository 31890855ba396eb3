package resolution

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	actionx "github.com/prachk/cardvoice-resolution-agent/agent/action"
	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
	intakenode "github.com/prachk/cardvoice-resolution-agent/agent/nodes"
	progressx "github.com/prachk/cardvoice-resolution-agent/agent/progress"
	statex "github.com/prachk/cardvoice-resolution-agent/agent/state"
)

type fakeDirectory struct {
	mu        sync.Mutex
	customers map[string]*contractx.Customer
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{customers: map[string]*contractx.Customer{
		"cust_001": {
			ID:       "cust_001",
			Name:     "Maria Alvarez",
			Last4SSN: "4821",
			Cards: []contractx.Card{
				{Last4: "4242", FullNumber: "4532015112834242"},
				{Last4: "9001", FullNumber: "5425233430109001"},
			},
			Transactions: []contractx.Transaction{
				{ID: "txn_1001", Merchant: "Amazon", Amount: 129.99},
			},
		},
	}}
}

func (d *fakeDirectory) GetCustomer(ctx context.Context, customerID string) (*contractx.Customer, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.customers[customerID]
	if !ok {
		return nil, fmt.Errorf("%w: customer %s", contractx.ErrNotFound, customerID)
	}
	cp := *c
	cp.Cards = append([]contractx.Card(nil), c.Cards...)
	cp.Transactions = append([]contractx.Transaction(nil), c.Transactions...)
	return &cp, nil
}

func (d *fakeDirectory) ListCards(ctx context.Context, customerID string) ([]contractx.Card, error) {
	c, err := d.GetCustomer(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return c.Cards, nil
}

func (d *fakeDirectory) SaveCustomer(ctx context.Context, customer *contractx.Customer) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.customers[customer.ID] = customer
	return nil
}

func (d *fakeDirectory) LockCard(ctx context.Context, customerID, last4 string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	c, ok := d.customers[customerID]
	if !ok {
		return false, fmt.Errorf("%w: customer %s", contractx.ErrNotFound, customerID)
	}
	for i := range c.Cards {
		if c.Cards[i].Last4 != last4 {
			continue
		}
		if c.Cards[i].FraudLocked {
			return false, nil
		}
		c.Cards[i].FraudLocked = true
		return true, nil
	}
	return false, fmt.Errorf("%w: card ending %s", contractx.ErrNotFound, last4)
}

type fakeTelephony struct {
	mu      sync.Mutex
	created []contractx.CreateCallRequest
	status  string
	fail    bool
}

func (p *fakeTelephony) CreateCall(ctx context.Context, req contractx.CreateCallRequest) (contractx.CallInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail {
		return contractx.CallInfo{}, &contractx.UpstreamError{Provider: "vapi", StatusCode: 500, Body: "boom"}
	}
	p.created = append(p.created, req)
	return contractx.CallInfo{ID: fmt.Sprintf("call_%d", len(p.created)), Status: "queued"}, nil
}

func (p *fakeTelephony) GetCallStatus(ctx context.Context, callID string) (contractx.CallInfo, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	status := p.status
	if status == "" {
		status = "queued"
	}
	return contractx.CallInfo{ID: callID, Status: status}, nil
}

type fakeSTT struct {
	text string
}

func (s *fakeSTT) Transcribe(ctx context.Context, audio []byte, mimeType string) (contractx.Transcription, error) {
	return contractx.Transcription{Text: s.text}, nil
}

func newTestService(t *testing.T, phone contractx.Telephony, stt contractx.SpeechToText) (*Service, statex.Store) {
	t.Helper()

	store := statex.NewMemoryStore()
	dir := newFakeDirectory()
	reconciler := progressx.NewReconciler(store)
	executor, err := actionx.New(dir)
	if err != nil {
		t.Fatal(err)
	}

	svc, err := New(store, dir, stt, phone, reconciler, executor, Config{
		AssistantID:   "asst_test",
		PhoneNumberID: "pn_test",
	})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, store
}

func TestResolveWithoutCall(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	out, err := svc.Resolve(ctx, intakenode.IntakeInput{
		CustomerID: "cust_001",
		CardLast4:  "4242",
		Transcript: "Someone used my card without my permission",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}

	if out.Intake.IssueType != contractx.IssueFraud {
		t.Fatalf("issue: got %q", out.Intake.IssueType)
	}
	if out.Handled.Resolution.CaseID == "" {
		t.Fatal("missing case id")
	}
	if !strings.Contains(out.Summary.Summary, "fraud alert") {
		t.Fatalf("summary: %q", out.Summary.Summary)
	}
	if out.Call != nil || out.CallError != "" {
		t.Fatalf("no call was requested: %+v", out)
	}
	if out.Issue.Progress != 100 || out.Issue.Status != "Resolved" {
		t.Fatalf("issue projection: %+v", out.Issue)
	}
}

func TestResolveWithCall(t *testing.T) {
	t.Parallel()

	phone := &fakeTelephony{}
	svc, store := newTestService(t, phone, nil)
	ctx := context.Background()

	out, err := svc.Resolve(ctx, intakenode.IntakeInput{
		CustomerID:   "cust_001",
		CardLast4:    "4242",
		Transcript:   "I was overcharged $129.99 at Amazon",
		CallToNumber: "+18005551234",
	})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if out.Call == nil || out.Call.ID == "" {
		t.Fatalf("call was not placed: %+v", out)
	}
	if out.CallError != "" {
		t.Fatalf("unexpected call error: %s", out.CallError)
	}

	sess, err := store.Load(ctx, out.Intake.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if sess.CallID != out.Call.ID {
		t.Fatalf("session call id: got %q, want %q", sess.CallID, out.Call.ID)
	}

	phone.mu.Lock()
	req := phone.created[0]
	phone.mu.Unlock()
	if req.CustomerNumber != "+18005551234" {
		t.Fatalf("dialed %q", req.CustomerNumber)
	}
	// The briefing must be self-contained: full card number, name, transcript.
	for _, want := range []string{"4532015112834242", "Maria Alvarez", "overcharged"} {
		if !strings.Contains(req.FirstMessage, want) {
			t.Fatalf("briefing missing %q:\n%s", want, req.FirstMessage)
		}
	}
	if req.Metadata["sessionId"] != sess.SessionID {
		t.Fatalf("metadata session id: %v", req.Metadata["sessionId"])
	}
}

func TestResolveCallFailureKeepsPartialResults(t *testing.T) {
	t.Parallel()

	phone := &fakeTelephony{fail: true}
	svc, _ := newTestService(t, phone, nil)

	out, err := svc.Resolve(context.Background(), intakenode.IntakeInput{
		CustomerID:   "cust_001",
		Transcript:   "please waive my late fee",
		CallToNumber: "+18005551234",
	})
	if err != nil {
		t.Fatalf("resolve must not fail outright: %v", err)
	}
	if out.CallError == "" {
		t.Fatal("call error was not surfaced")
	}
	if out.Call != nil {
		t.Fatal("no call info should be returned on failure")
	}
	if out.Handled.Resolution.TicketID == "" || out.Summary.Summary == "" {
		t.Fatalf("earlier stages were lost: %+v", out)
	}
}

func TestHandleCallIsIdempotent(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	sess, err := svc.VoiceIntake(ctx, intakenode.IntakeInput{
		CustomerID: "cust_001",
		Transcript: "my card was stolen",
	})
	if err != nil {
		t.Fatal(err)
	}

	first, err := svc.HandleCall(ctx, sess.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.HandleCall(ctx, sess.SessionID)
	if err != nil {
		t.Fatal(err)
	}
	if first.Resolution.CaseID != second.Resolution.CaseID {
		t.Fatalf("retry produced a new resolution: %q vs %q", first.Resolution.CaseID, second.Resolution.CaseID)
	}
}

func TestVoiceIntakeFromAudio(t *testing.T) {
	t.Parallel()

	stt := &fakeSTT{text: "I want to speak to a manager"}
	svc, _ := newTestService(t, nil, stt)

	sess, err := svc.VoiceIntake(context.Background(), intakenode.IntakeInput{
		CustomerID:  "cust_001",
		AudioBase64: base64.StdEncoding.EncodeToString([]byte("fake-audio")),
		MimeType:    "audio/webm",
	})
	if err != nil {
		t.Fatalf("intake: %v", err)
	}
	if sess.Transcript != "I want to speak to a manager" {
		t.Fatalf("transcript: %q", sess.Transcript)
	}
	if sess.IssueType != contractx.IssueEscalation {
		t.Fatalf("issue: %q", sess.IssueType)
	}
	// No card supplied: the customer's first card is used.
	if sess.CardLast4 != "4242" {
		t.Fatalf("card: %q", sess.CardLast4)
	}
}

func TestVoiceIntakeValidation(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, nil, nil)
	ctx := context.Background()

	if _, err := svc.VoiceIntake(ctx, intakenode.IntakeInput{Transcript: "hi"}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("missing customer: got %v", err)
	}
	if _, err := svc.VoiceIntake(ctx, intakenode.IntakeInput{CustomerID: "cust_001"}); !errors.Is(err, contractx.ErrValidation) {
		t.Fatalf("missing transcript and audio: got %v", err)
	}
	if _, err := svc.VoiceIntake(ctx, intakenode.IntakeInput{
		CustomerID: "cust_001",
		CardLast4:  "0000",
		Transcript: "fraud",
	}); !errors.Is(err, contractx.ErrNotFound) {
		t.Fatalf("unknown card: got %v", err)
	}
}

func TestReconcileStatusStaleUpdate(t *testing.T) {
	t.Parallel()

	phone := &fakeTelephony{}
	svc, _ := newTestService(t, phone, nil)
	ctx := context.Background()

	out, err := svc.Resolve(ctx, intakenode.IntakeInput{
		CustomerID:   "cust_001",
		Transcript:   "my card was stolen",
		CallToNumber: "+18005551234",
	})
	if err != nil {
		t.Fatal(err)
	}
	sessionID, callID := out.Intake.SessionID, out.Call.ID

	// Webhook says the call ended, then a stale poll reports ringing.
	snap, err := svc.ReconcileStatus(ctx, sessionID, callID, "ended")
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Terminal {
		t.Fatalf("ended must be terminal: %+v", snap)
	}
	snap, err = svc.ReconcileStatus(ctx, sessionID, callID, "ringing")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Status != contractx.StatusEnded || snap.Progress != 100 {
		t.Fatalf("stale update regressed: %+v", snap)
	}

	issue, err := svc.Issue(ctx, sessionID)
	if err != nil {
		t.Fatal(err)
	}
	if issue.Progress != 100 {
		t.Fatalf("issue projection: %+v", issue)
	}
}

func TestCallStatusWithoutTelephony(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(t, nil, nil)
	if _, err := svc.CallStatus(context.Background(), "call_1"); !errors.Is(err, contractx.ErrConfiguration) {
		t.Fatalf("got %v, want ErrConfiguration", err)
	}
}
