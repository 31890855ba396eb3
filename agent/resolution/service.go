// Package resolution sequences one workflow run: intake, classification,
// action, optional outbound call, and the status reconciliation that
// follows.
package resolution

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	actionx "github.com/prachk/cardvoice-resolution-agent/agent/action"
	briefingx "github.com/prachk/cardvoice-resolution-agent/agent/briefing"
	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
	intakenode "github.com/prachk/cardvoice-resolution-agent/agent/nodes"
	progressx "github.com/prachk/cardvoice-resolution-agent/agent/progress"
	statex "github.com/prachk/cardvoice-resolution-agent/agent/state"
	summaryx "github.com/prachk/cardvoice-resolution-agent/agent/summary"
)

type Config struct {
	AssistantID   string
	PhoneNumberID string
	PollInterval  time.Duration
}

type Service struct {
	store      statex.Store
	dir        contractx.Directory
	stt        contractx.SpeechToText
	phone      contractx.Telephony
	reconciler *progressx.Reconciler
	executor   *actionx.Executor
	poller     *progressx.Poller

	assistantID   string
	phoneNumberID string

	intakeRunner compose.Runnable[intakenode.IntakeInput, *statex.Session]

	now   func() time.Time
	newID func() string
}

// New wires the workflow. The speech and telephony collaborators may be
// nil; the operations that need them fail with ErrConfiguration instead of
// failing construction, so intake and actions keep working without them.
func New(
	store statex.Store,
	dir contractx.Directory,
	stt contractx.SpeechToText,
	phone contractx.Telephony,
	reconciler *progressx.Reconciler,
	executor *actionx.Executor,
	cfg Config,
) (*Service, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if dir == nil {
		return nil, errors.New("customer directory is required")
	}
	if reconciler == nil {
		return nil, errors.New("status reconciler is required")
	}
	if executor == nil {
		return nil, errors.New("action executor is required")
	}

	s := &Service{
		store:         store,
		dir:           dir,
		stt:           stt,
		phone:         phone,
		reconciler:    reconciler,
		executor:      executor,
		assistantID:   strings.TrimSpace(cfg.AssistantID),
		phoneNumberID: strings.TrimSpace(cfg.PhoneNumberID),
		now:           time.Now,
		newID: func() string {
			return "sess_" + uuid.NewString()
		},
	}

	if phone != nil {
		s.poller = progressx.NewPoller(phone, reconciler, cfg.PollInterval)
	}

	intakeRunner, err := s.compileIntakeGraph(context.Background())
	if err != nil {
		return nil, err
	}
	s.intakeRunner = intakeRunner

	return s, nil
}

// VoiceIntake runs the intake pipeline and returns the persisted session.
func (s *Service) VoiceIntake(ctx context.Context, in intakenode.IntakeInput) (*statex.Session, error) {
	return s.intakeRunner.Invoke(ctx, in)
}

type HandleResult struct {
	Status     string               `json:"status"`
	Resolution contractx.Resolution `json:"resolution"`
}

// HandleCall executes the mock banking action for a session. Re-invoking it
// for an already-resolved session returns the existing resolution, so a
// caller retry never double-executes.
func (s *Service) HandleCall(ctx context.Context, sessionID string) (HandleResult, error) {
	sess, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return HandleResult{}, err
	}
	if sess.Resolution != nil {
		return HandleResult{Status: "resolved", Resolution: *sess.Resolution}, nil
	}

	res, err := s.executor.Execute(ctx, actionx.Request{
		CustomerID: sess.CustomerID,
		CardLast4:  sess.CardLast4,
		IssueType:  sess.IssueType,
		Fields:     sess.Fields,
	})
	if err != nil {
		return HandleResult{}, err
	}

	if err := sess.SetResolution(res); err != nil {
		return HandleResult{}, err
	}
	sess.Touch(s.now())
	if err := s.store.Save(ctx, sess); err != nil {
		return HandleResult{}, err
	}

	return HandleResult{Status: "resolved", Resolution: res}, nil
}

// Summarize renders and records the final outcome text for a session.
func (s *Service) Summarize(ctx context.Context, sessionID string) (summaryx.Result, error) {
	sess, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return summaryx.Result{}, err
	}

	customer, err := s.dir.GetCustomer(ctx, sess.CustomerID)
	if err != nil {
		return summaryx.Result{}, err
	}

	out := summaryx.Summarize(sess.IssueType, sess.Resolution, customer.Name)
	if err := sess.SetSummary(out.Summary); err != nil {
		return summaryx.Result{}, err
	}
	sess.Touch(s.now())
	if err := s.store.Save(ctx, sess); err != nil {
		return summaryx.Result{}, err
	}
	return out, nil
}

// ResolveResult reports every stage of a full run. When call placement
// fails, the stages already completed stay populated and CallError carries
// the reason; partial completion is visible, not hidden.
type ResolveResult struct {
	Intake    *statex.Session     `json:"intake"`
	Handled   HandleResult        `json:"handled"`
	Summary   summaryx.Result     `json:"summary"`
	Call      *contractx.CallInfo `json:"call,omitempty"`
	CallError string              `json:"callError,omitempty"`
	Issue     progressx.Issue     `json:"issue"`
}

// Resolve runs the whole pipeline: intake, action, summary, and, when the
// caller supplied a destination number, outbound call placement. The
// workflow never decides to call on its own.
func (s *Service) Resolve(ctx context.Context, in intakenode.IntakeInput) (ResolveResult, error) {
	sess, err := s.VoiceIntake(ctx, in)
	if err != nil {
		return ResolveResult{}, err
	}

	out := ResolveResult{Intake: sess}

	out.Handled, err = s.HandleCall(ctx, sess.SessionID)
	if err != nil {
		return ResolveResult{}, err
	}

	out.Summary, err = s.Summarize(ctx, sess.SessionID)
	if err != nil {
		return ResolveResult{}, err
	}

	if sess.CallToNumber != "" {
		info, callErr := s.placeCall(ctx, sess.SessionID)
		if callErr != nil {
			log.Warn().Err(callErr).Str("session_id", sess.SessionID).Msg("call placement failed")
			out.CallError = callErr.Error()
		} else {
			out.Call = &info
		}
	}

	final, err := s.store.Load(ctx, sess.SessionID)
	if err != nil {
		return ResolveResult{}, err
	}
	out.Intake = final
	out.Issue = s.reconciler.IssueFor(final)
	return out, nil
}

// placeCall builds the self-contained briefing and asks the telephony
// platform to dial. The session records the returned call id exactly once;
// placing a call for a session that already has one is a no-op returning
// the recorded call.
func (s *Service) placeCall(ctx context.Context, sessionID string) (contractx.CallInfo, error) {
	if s.phone == nil {
		return contractx.CallInfo{}, fmt.Errorf("%w: telephony client", contractx.ErrConfiguration)
	}
	if s.assistantID == "" {
		return contractx.CallInfo{}, fmt.Errorf("%w: assistant id", contractx.ErrConfiguration)
	}

	sess, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return contractx.CallInfo{}, err
	}
	if sess.CallID != "" {
		return contractx.CallInfo{ID: sess.CallID, Status: sess.ProviderStatus}, nil
	}

	customer, err := s.dir.GetCustomer(ctx, sess.CustomerID)
	if err != nil {
		return contractx.CallInfo{}, err
	}

	var cardNumber string
	if card := customer.CardByLast4(sess.CardLast4); card != nil {
		cardNumber = card.FullNumber
	}

	brief, err := briefingx.Build(briefingx.Input{
		CustomerName: customer.Name,
		IssueType:    sess.IssueType,
		CardNumber:   cardNumber,
		CardLast4:    sess.CardLast4,
		SSNLast4:     customer.Last4SSN,
		Transcript:   sess.Transcript,
		Summary:      sess.Summary,
	})
	if err != nil {
		return contractx.CallInfo{}, err
	}

	info, err := s.phone.CreateCall(ctx, contractx.CreateCallRequest{
		AssistantID:    s.assistantID,
		CustomerNumber: sess.CallToNumber,
		PhoneNumberID:  s.phoneNumberID,
		FirstMessage:   brief,
		Metadata: map[string]any{
			"sessionId":  sess.SessionID,
			"issueType":  string(sess.IssueType),
			"customerId": sess.CustomerID,
			"cardLast4":  sess.CardLast4,
		},
	})
	if err != nil {
		return contractx.CallInfo{}, err
	}

	if err := sess.SetCallID(info.ID); err != nil {
		return contractx.CallInfo{}, err
	}
	sess.Touch(s.now())
	if err := s.store.Save(ctx, sess); err != nil {
		return contractx.CallInfo{}, err
	}

	status := info.Status
	if status == "" {
		status = contractx.StatusQueued
	}
	if _, err := s.reconciler.Apply(ctx, sess.SessionID, info.ID, status); err != nil {
		return contractx.CallInfo{}, err
	}

	if s.poller != nil {
		go s.poller.Watch(context.Background(), sess.SessionID, info.ID)
	}
	return info, nil
}

// ReconcileStatus merges one raw status update into the session's progress.
// Both the polling path and the webhook path land here.
func (s *Service) ReconcileStatus(ctx context.Context, sessionID, callID, rawStatus string) (progressx.Snapshot, error) {
	return s.reconciler.Apply(ctx, sessionID, callID, rawStatus)
}

// CallStatus is a pass-through read of the provider's view of a call.
func (s *Service) CallStatus(ctx context.Context, callID string) (contractx.CallInfo, error) {
	if s.phone == nil {
		return contractx.CallInfo{}, fmt.Errorf("%w: telephony client", contractx.ErrConfiguration)
	}
	return s.phone.GetCallStatus(ctx, callID)
}

// Issue projects a session into its UI-facing progress view.
func (s *Service) Issue(ctx context.Context, sessionID string) (progressx.Issue, error) {
	sess, err := s.store.Load(ctx, sessionID)
	if err != nil {
		return progressx.Issue{}, err
	}
	return s.reconciler.IssueFor(sess), nil
}
