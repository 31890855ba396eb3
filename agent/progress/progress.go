// Package progress reconciles call-status updates from two independent,
// unordered sources, client polling and provider webhooks, into one
// monotonic progress value per session.
package progress

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
	statex "github.com/prachk/cardvoice-resolution-agent/agent/state"
)

// Progress values for the UI projection. Unknown statuses land on the
// queued value so an out-of-vocabulary update can never regress progress
// already earned.
const (
	ProgressQueued  = 50
	ProgressRinging = 60
	ProgressActive  = 75
	ProgressDone    = 100
)

// For maps a raw provider status to its progress value and display text.
func For(status string) (int, string) {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case contractx.StatusQueued:
		return ProgressQueued, "Call queued"
	case contractx.StatusRinging:
		return ProgressRinging, "Ringing..."
	case contractx.StatusInProgress:
		return ProgressActive, "Call in progress"
	case contractx.StatusForwarding:
		return ProgressActive, "Forwarding call"
	case contractx.StatusEnded:
		return ProgressDone, "Resolved"
	default:
		return ProgressQueued, "Call: " + strings.TrimSpace(status)
	}
}

// Snapshot is the reconciled view of one call after an update was applied.
type Snapshot struct {
	SessionID  string `json:"sessionId,omitempty"`
	CallID     string `json:"callId"`
	Status     string `json:"status"`
	StatusText string `json:"statusText"`
	Progress   int    `json:"progress"`
	Terminal   bool   `json:"terminal"`
}

// Reconciler merges status updates per call. Progress is a pure function of
// the highest-ordered status seen so far, so applying updates is commutative
// and idempotent over any interleaving of polling and webhook delivery.
// The mutex only serializes the read-merge-write against the session store;
// ordering between sources needs no lock by construction.
type Reconciler struct {
	mu     sync.Mutex
	store  statex.Store
	byCall map[string]string
}

func NewReconciler(store statex.Store) *Reconciler {
	return &Reconciler{
		store:  store,
		byCall: make(map[string]string),
	}
}

// Apply merges one raw status update for callID into the tracked maximum
// and, when a session is known, writes the merged status through to it.
// Duplicate and out-of-order updates return the unchanged snapshot.
func (r *Reconciler) Apply(ctx context.Context, sessionID, callID, raw string) (Snapshot, error) {
	callID = strings.TrimSpace(callID)
	if callID == "" {
		return Snapshot{}, fmt.Errorf("%w: call id is required", contractx.ErrValidation)
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		raw = contractx.StatusQueued
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	merged := maxStatus(r.byCall[callID], raw)
	r.byCall[callID] = merged

	sessionID = strings.TrimSpace(sessionID)
	if sessionID != "" && r.store != nil {
		sess, err := r.store.Load(ctx, sessionID)
		if err != nil {
			return Snapshot{}, err
		}
		merged = sess.AdvanceProviderStatus(merged)
		r.byCall[callID] = merged
		if err := r.store.Save(ctx, sess); err != nil {
			return Snapshot{}, err
		}
		// The session now carries the terminal status, so the in-memory
		// entry has nothing left to contribute. Entries without a session
		// are kept: a later update may still attach one.
		if contractx.StatusTerminal(merged) {
			delete(r.byCall, callID)
		}
	}

	value, text := For(merged)
	snap := Snapshot{
		SessionID:  sessionID,
		CallID:     callID,
		Status:     merged,
		StatusText: text,
		Progress:   value,
		Terminal:   contractx.StatusTerminal(merged),
	}

	log.Debug().
		Str("call_id", callID).
		Str("raw_status", raw).
		Str("merged_status", merged).
		Int("progress", value).
		Msg("status reconciled")
	return snap, nil
}

// Peek returns the reconciled snapshot for a call without applying anything.
func (r *Reconciler) Peek(callID string) (Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	status, ok := r.byCall[strings.TrimSpace(callID)]
	if !ok {
		return Snapshot{}, false
	}
	value, text := For(status)
	return Snapshot{
		CallID:     callID,
		Status:     status,
		StatusText: text,
		Progress:   value,
		Terminal:   contractx.StatusTerminal(status),
	}, true
}

func maxStatus(current, next string) string {
	if current == "" {
		return next
	}
	if contractx.StatusRank(next) > contractx.StatusRank(current) {
		return next
	}
	return current
}
