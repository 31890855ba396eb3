// Package server is the thin HTTP layer over the resolution workflow. It
// decodes requests, maps taxonomy errors to status codes, and owns the
// webhook shared-secret gate; all semantics live below it.
package server

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
	intakenode "github.com/prachk/cardvoice-resolution-agent/agent/nodes"
	resolutionx "github.com/prachk/cardvoice-resolution-agent/agent/resolution"
)

// Synthesizer renders text to audio. Split from contract.SpeechToText
// because only the transport layer exposes synthesis.
type Synthesizer interface {
	Synthesize(ctx context.Context, text, voice string) ([]byte, error)
}

type Handler struct {
	Service       *resolutionx.Service
	Dir           contractx.Directory
	STT           contractx.SpeechToText
	TTS           Synthesizer
	WebhookSecret string
}

type envelope struct {
	OK    bool   `json:"ok"`
	Data  any    `json:"data,omitempty"`
	Error string `json:"error,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: map[string]string{
		"service":   "cardvoice-resolution-agent",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}})
}

func (h *Handler) VoiceIntake(w http.ResponseWriter, r *http.Request) {
	var in intakenode.IntakeInput
	if !decode(w, r, &in) {
		return
	}
	sess, err := h.Service.VoiceIntake(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: sess})
}

type sessionRequest struct {
	SessionID string `json:"sessionId"`
}

func (h *Handler) CallHandling(w http.ResponseWriter, r *http.Request) {
	var in sessionRequest
	if !decode(w, r, &in) {
		return
	}
	out, err := h.Service.HandleCall(r.Context(), in.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: out})
}

func (h *Handler) FinalSummary(w http.ResponseWriter, r *http.Request) {
	var in sessionRequest
	if !decode(w, r, &in) {
		return
	}
	out, err := h.Service.Summarize(r.Context(), in.SessionID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: out})
}

func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	var in intakenode.IntakeInput
	if !decode(w, r, &in) {
		return
	}
	out, err := h.Service.Resolve(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: out})
}

type callStatusResponse struct {
	contractx.CallInfo
	Progress int    `json:"progress,omitempty"`
	Terminal bool   `json:"terminal,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// CallStatus reads the provider's view of the call and, when the caller
// identifies the session, feeds the observation through the reconciler so
// a poll can never regress webhook-earned progress.
func (h *Handler) CallStatus(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("callId")
	info, err := h.Service.CallStatus(r.Context(), callID)
	if err != nil {
		writeError(w, err)
		return
	}

	out := callStatusResponse{CallInfo: info}
	if sessionID := strings.TrimSpace(r.URL.Query().Get("sessionId")); sessionID != "" {
		snap, err := h.Service.ReconcileStatus(r.Context(), sessionID, callID, info.Status)
		if err != nil {
			writeError(w, err)
			return
		}
		out.Status = snap.Status
		out.Progress = snap.Progress
		out.Terminal = snap.Terminal
		out.Detail = snap.StatusText
	}
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: out})
}

type transcribeRequest struct {
	AudioBase64 string `json:"audioBase64"`
	MimeType    string `json:"mimeType"`
}

func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	if h.STT == nil {
		writeError(w, contractx.ErrConfiguration)
		return
	}
	var in transcribeRequest
	if !decode(w, r, &in) {
		return
	}
	audio, err := base64.StdEncoding.DecodeString(in.AudioBase64)
	if err != nil {
		writeError(w, contractx.ErrValidation)
		return
	}
	out, err := h.STT.Transcribe(r.Context(), audio, in.MimeType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: out})
}

type synthesizeRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice,omitempty"`
}

func (h *Handler) Synthesize(w http.ResponseWriter, r *http.Request) {
	if h.TTS == nil {
		writeError(w, contractx.ErrConfiguration)
		return
	}
	var in synthesizeRequest
	if !decode(w, r, &in) {
		return
	}
	audio, err := h.TTS.Synthesize(r.Context(), in.Text, in.Voice)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: map[string]string{
		"audioBase64": base64.StdEncoding.EncodeToString(audio),
		"mimeType":    "audio/mpeg",
	}})
}

func decode(w http.ResponseWriter, r *http.Request, out any) bool {
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		writeJSON(w, http.StatusBadRequest, envelope{Error: "invalid JSON body"})
		return false
	}
	return true
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, contractx.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, contractx.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, contractx.ErrConfiguration):
		status = http.StatusInternalServerError
	default:
		if _, ok := contractx.AsUpstream(err); ok {
			status = http.StatusBadGateway
		}
	}
	log.Warn().Err(err).Int("status", status).Msg("request failed")
	writeJSON(w, status, envelope{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
