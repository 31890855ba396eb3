package progress

import (
	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
	statex "github.com/prachk/cardvoice-resolution-agent/agent/state"
)

// Issue is the UI-facing projection of a session. It is derived, recomputed
// on demand, and never the system of record.
type Issue struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Progress int    `json:"progress"`
	Status   string `json:"status"`
	Summary  string `json:"summary,omitempty"`
	TicketID string `json:"ticketId,omitempty"`
	CallID   string `json:"callId,omitempty"`
}

// IssueFor projects a session into its UI issue. A session with a placed
// call takes its progress from the reconciled provider status; a session
// resolved without a call is terminal at 100 as soon as the resolution
// exists.
func (r *Reconciler) IssueFor(sess *statex.Session) Issue {
	issue := Issue{
		ID:    sess.SessionID,
		Label: "Card Service Case",
	}
	if sess.IssueType != "" {
		issue.Label = sess.IssueType.Label()
	}
	if sess.Resolution != nil {
		issue.TicketID = sess.Resolution.Reference()
	}
	issue.Summary = sess.Summary
	issue.CallID = sess.CallID

	switch {
	case sess.CallID != "":
		status := sess.ProviderStatus
		if snap, ok := r.Peek(sess.CallID); ok && (status == "" || contractx.StatusRank(snap.Status) > contractx.StatusRank(status)) {
			status = snap.Status
		}
		if status == "" {
			issue.Progress = 40
			issue.Status = "Call placed - waiting for status"
			return issue
		}
		issue.Progress, issue.Status = For(status)
	case sess.Resolution != nil:
		issue.Progress = ProgressDone
		issue.Status = "Resolved"
	case sess.Transcript != "":
		issue.Progress = 30
		issue.Status = "Processing issue..."
	default:
		issue.Progress = 10
		issue.Status = "Voice intake started"
	}
	return issue
}
