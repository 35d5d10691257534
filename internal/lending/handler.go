// internal/lending/handler.go
package lending

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"vedavault/internal/authz"
	"vedavault/internal/catalog"
	"vedavault/internal/identity"
)

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) HandleRequestBorrow(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	var req struct {
		BookID uuid.UUID `json:"book_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t, err := h.service.RequestBorrow(r.Context(), actor, req.BookID)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(t)
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := transactionTarget(w, r)
	if !ok {
		return
	}

	var req struct {
		Status Status `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	switch req.Status {
	case StatusApproved, StatusRejected, StatusCompleted:
	default:
		http.Error(w, "status must be approved, rejected or completed", http.StatusBadRequest)
		return
	}

	t, err := h.service.UpdateStatus(r.Context(), actor, id, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	json.NewEncoder(w).Encode(t)
}

func (h *Handler) HandleGetTransaction(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := transactionTarget(w, r)
	if !ok {
		return
	}

	t, err := h.service.GetTransaction(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	json.NewEncoder(w).Encode(t)
}

func (h *Handler) HandleListTransactions(w http.ResponseWriter, r *http.Request) {
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	list, err := h.service.ListTransactions(r.Context(), actor)
	if err != nil {
		writeError(w, err)
		return
	}
	if list == nil {
		list = []*Transaction{}
	}
	json.NewEncoder(w).Encode(list)
}

func (h *Handler) HandleRecordPayment(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := transactionTarget(w, r)
	if !ok {
		return
	}

	var req struct {
		Amount float64 `json:"amount"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	p, err := h.service.RecordPayment(r.Context(), actor, id, req.Amount)
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(p)
}

func (h *Handler) HandleListPayments(w http.ResponseWriter, r *http.Request) {
	id, actor, ok := transactionTarget(w, r)
	if !ok {
		return
	}

	payments, err := h.service.ListPayments(r.Context(), actor, id)
	if err != nil {
		writeError(w, err)
		return
	}
	if payments == nil {
		payments = []*Payment{}
	}
	json.NewEncoder(w).Encode(payments)
}

func transactionTarget(w http.ResponseWriter, r *http.Request) (uuid.UUID, uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid transaction ID", http.StatusBadRequest)
		return uuid.Nil, uuid.Nil, false
	}
	actor, ok := identity.ActorFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return uuid.Nil, uuid.Nil, false
	}
	return id, actor, true
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authz.ErrDenied), errors.Is(err, catalog.ErrBookNotFound):
		// Denial never reveals whether the row exists.
		http.Error(w, "not found", http.StatusNotFound)
	case errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrBookConflict), errors.Is(err, ErrBookUnavailable):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
