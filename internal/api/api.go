// Package api exposes the ledger's external interface as a JSON HTTP
// API. Presentation, authentication and notification delivery live in
// external collaborators; the handlers here only translate between HTTP
// and the ledger service.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/mealtab/kitty/internal/ledger"
	"github.com/mealtab/kitty/internal/models"
)

// Handler serves the ledger API.
type Handler struct {
	ledger *ledger.Service
}

// NewHandler creates a Handler backed by the given ledger service.
func NewHandler(svc *ledger.Service) *Handler {
	return &Handler{ledger: svc}
}

// Register mounts the API routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/accounts/resolve", h.resolveAccount)
	mux.HandleFunc("GET /api/balance", h.balance)
	mux.HandleFunc("GET /api/balances", h.balances)
	mux.HandleFunc("GET /api/negative-since", h.negativeSince)
	mux.HandleFunc("POST /api/transfers", h.recordTransfer)
	mux.HandleFunc("POST /api/transactions/{id}/cancel", h.cancelTransaction)
	mux.HandleFunc("POST /api/pending", h.openPending)
	mux.HandleFunc("PUT /api/pending/{id}", h.updatePending)
	mux.HandleFunc("DELETE /api/pending/{id}", h.deletePending)
	mux.HandleFunc("POST /api/pending/finalize", h.finalizeExpired)
	mux.HandleFunc("GET /api/dining/{id}/charges", h.diningCharges)
	mux.HandleFunc("POST /api/dining/{id}/finalize", h.finalizeDining)
	mux.HandleFunc("POST /api/dining/finalize", h.finalizeDiningBefore)
}

func (h *Handler) resolveAccount(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	account, err := h.ledger.ResolveAccount(r.Context(), ref)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, accountJSON(account))
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	balance, err := h.ledger.BalanceFor(r.Context(), ref)
	if err != nil {
		writeError(w, err)
		return
	}
	fixed, err := h.ledger.FixedBalanceFor(r.Context(), ref)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, balanceResponse{
		Balance:      balance.StringFixed(2),
		BalanceFixed: fixed.StringFixed(2),
	})
}

func (h *Handler) balances(w http.ResponseWriter, r *http.Request) {
	projection, err := h.ledger.Annotate(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}

	rows := make([]userBalanceJSON, len(projection))
	for i, b := range projection {
		rows[i] = userBalanceJSON{
			UserID:       b.UserID,
			Balance:      b.Balance.StringFixed(2),
			BalanceFixed: b.BalanceFixed.StringFixed(2),
		}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) negativeSince(w http.ResponseWriter, r *http.Request) {
	ref, err := refFromQuery(r)
	if err != nil {
		writeError(w, err)
		return
	}

	moment, err := h.ledger.NegativeSince(r.Context(), ref)
	if err != nil {
		writeError(w, err)
		return
	}

	var resp struct {
		NegativeSince *time.Time `json:"negative_since"`
	}
	resp.NegativeSince = moment
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) recordTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	tx, err := h.ledger.RecordTransfer(r.Context(), req.Source.ref(), req.Target.ref(), amount, req.Description, req.CreatedBy)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, fixedJSON(tx))
}

func (h *Handler) cancelTransaction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CancelledBy string `json:"cancelled_by"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	tx, err := h.ledger.CancelTransaction(r.Context(), r.PathValue("id"), req.CancelledBy)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fixedJSON(tx))
}

func (h *Handler) openPending(w http.ResponseWriter, r *http.Request) {
	var req pendingRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	params := ledger.PendingParams{
		Source:      req.Source.ref(),
		Target:      req.Target.ref(),
		Amount:      amount,
		Description: req.Description,
		CreatedBy:   req.CreatedBy,
	}
	if req.OrderMoment != nil {
		params.OrderMoment = *req.OrderMoment
	}
	if req.ConfirmMoment != nil {
		params.ConfirmMoment = *req.ConfirmMoment
	}

	tx, err := h.ledger.OpenPending(r.Context(), params)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, pendingJSON(tx))
}

func (h *Handler) updatePending(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount      string `json:"amount"`
		Description string `json:"description"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	tx, err := h.ledger.UpdatePending(r.Context(), r.PathValue("id"), amount, req.Description)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, pendingJSON(tx))
}

func (h *Handler) deletePending(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeletePending(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) finalizeExpired(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AsOf *time.Time `json:"as_of"`
	}
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var asOf time.Time
	if req.AsOf != nil {
		asOf = *req.AsOf
	}

	finalized, err := h.ledger.FinalizeExpired(r.Context(), asOf)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, fixedListJSON(finalized))
}

func (h *Handler) diningCharges(w http.ResponseWriter, r *http.Request) {
	charges, err := h.ledger.DiningCharges(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}

	rows := make([]diningChargeJSON, len(charges))
	for i, c := range charges {
		rows[i] = diningChargeJSON{
			EntryID:     c.EntryID,
			ListID:      c.ListID,
			SourceID:    c.SourceID,
			TargetID:    c.TargetID,
			Amount:      c.Amount.StringFixed(2),
			Moment:      c.Moment,
			Description: c.Description,
		}
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) finalizeDining(w http.ResponseWriter, r *http.Request) {
	finalized, err := h.ledger.FinalizeDining(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fixedListJSON(finalized))
}

func (h *Handler) finalizeDiningBefore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Cutoff time.Time `json:"cutoff"`
	}
	if err := decodeOptionalBody(r, &req); err != nil {
		writeError(w, err)
		return
	}

	finalized, err := h.ledger.FinalizeDiningBefore(r.Context(), req.Cutoff)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, fixedListJSON(finalized))
}

// writeError maps ledger error kinds to HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, models.ErrInvalidTransaction):
		status = http.StatusBadRequest
	case errors.Is(err, models.ErrBalanceTooLow):
		status = http.StatusConflict
	case errors.Is(err, models.ErrAlreadyCancelled):
		status = http.StatusConflict
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		slog.Error("Request failed", "error", err)
	} else {
		slog.Warn("Request rejected", "status", status, "error", err)
	}

	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
