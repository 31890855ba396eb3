package server

import (
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// NewRouter maps every route onto the handler. Method matching is done by
// the mux patterns.
func NewRouter(h *Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", h.Health)

	mux.HandleFunc("POST /api/agent/voice-intake", h.VoiceIntake)
	mux.HandleFunc("POST /api/agent/call-handling", h.CallHandling)
	mux.HandleFunc("POST /api/agent/final-summary", h.FinalSummary)
	mux.HandleFunc("POST /api/agent/resolve", h.Resolve)
	mux.HandleFunc("GET /api/agent/call-status/{callId}", h.CallStatus)

	mux.HandleFunc("POST /api/voice/transcribe", h.Transcribe)
	mux.HandleFunc("POST /api/voice/synthesize", h.Synthesize)

	mux.HandleFunc("POST /api/vapi/webhook", h.Webhook)

	mux.HandleFunc("POST /api/tools/verify-customer", h.VerifyCustomer)
	mux.HandleFunc("POST /api/tools/list-cards", h.ListCards)
	mux.HandleFunc("POST /api/tools/list-transactions", h.ListTransactions)
	mux.HandleFunc("POST /api/tools/flag-transaction", h.FlagTransaction)

	return withRequestLog(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withRequestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("http request")
	})
}
