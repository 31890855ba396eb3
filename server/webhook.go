package server

import (
	"crypto/hmac"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"
)

const webhookSecretHeader = "x-vapi-secret"

// webhookEvent is the flat shape the telephony platform posts. Metadata is
// echoed back from call creation, so sessionId may arrive either at the top
// level or inside it.
type webhookEvent struct {
	Event     string `json:"event,omitempty"`
	Type      string `json:"type,omitempty"`
	CallID    string `json:"callId"`
	Status    string `json:"status"`
	SessionID string `json:"sessionId,omitempty"`
	Metadata  struct {
		SessionID string `json:"sessionId,omitempty"`
	} `json:"metadata,omitempty"`
}

// Webhook ingests status updates pushed by the telephony platform. Updates
// merge through the same reconciler the poller uses, so duplicated or
// out-of-order deliveries never move progress backwards.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	// An empty configured secret disables the gate entirely; verification
	// only runs against a secret that was actually set.
	if h.WebhookSecret != "" {
		got := r.Header.Get(webhookSecretHeader)
		if !hmac.Equal([]byte(got), []byte(h.WebhookSecret)) {
			writeJSON(w, http.StatusUnauthorized, envelope{Error: "invalid webhook secret"})
			return
		}
	}

	var ev webhookEvent
	if !decode(w, r, &ev) {
		return
	}

	callID := strings.TrimSpace(ev.CallID)
	if callID == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Error: "callId is required"})
		return
	}
	sessionID := strings.TrimSpace(ev.SessionID)
	if sessionID == "" {
		sessionID = strings.TrimSpace(ev.Metadata.SessionID)
	}

	snap, err := h.Service.ReconcileStatus(r.Context(), sessionID, callID, ev.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	log.Info().
		Str("call_id", callID).
		Str("status", snap.Status).
		Int("progress", snap.Progress).
		Msg("webhook status applied")
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: snap})
}
