package server

import (
	"fmt"
	"net/http"
	"strings"

	contractx "github.com/prachk/cardvoice-resolution-agent/agent/contract"
)

// The /api/tools routes are the small lookup surface the in-call assistant
// invokes while speaking with a bank agent.

type customerRequest struct {
	CustomerID string `json:"customerId"`
}

func (h *Handler) VerifyCustomer(w http.ResponseWriter, r *http.Request) {
	var in customerRequest
	if !decode(w, r, &in) {
		return
	}
	customer, err := h.Dir.GetCustomer(r.Context(), strings.TrimSpace(in.CustomerID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: map[string]any{
		"verified": true,
		"name":     customer.Name,
		"last4Ssn": customer.Last4SSN,
	}})
}

func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	var in customerRequest
	if !decode(w, r, &in) {
		return
	}
	cards, err := h.Dir.ListCards(r.Context(), strings.TrimSpace(in.CustomerID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: cards})
}

func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	var in customerRequest
	if !decode(w, r, &in) {
		return
	}
	customer, err := h.Dir.GetCustomer(r.Context(), strings.TrimSpace(in.CustomerID))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: customer.Transactions})
}

type flagTransactionRequest struct {
	CustomerID    string `json:"customerId"`
	TransactionID string `json:"transactionId"`
}

func (h *Handler) FlagTransaction(w http.ResponseWriter, r *http.Request) {
	var in flagTransactionRequest
	if !decode(w, r, &in) {
		return
	}
	in.CustomerID = strings.TrimSpace(in.CustomerID)
	in.TransactionID = strings.TrimSpace(in.TransactionID)
	if in.TransactionID == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Error: "transactionId is required"})
		return
	}

	customer, err := h.Dir.GetCustomer(r.Context(), in.CustomerID)
	if err != nil {
		writeError(w, err)
		return
	}

	var flagged *contractx.Transaction
	for i := range customer.Transactions {
		if customer.Transactions[i].ID == in.TransactionID {
			customer.Transactions[i].Flagged = true
			flagged = &customer.Transactions[i]
			break
		}
	}
	if flagged == nil {
		writeError(w, fmt.Errorf("%w: transaction %s", contractx.ErrNotFound, in.TransactionID))
		return
	}
	if err := h.Dir.SaveCustomer(r.Context(), customer); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, envelope{OK: true, Data: flagged})
}
