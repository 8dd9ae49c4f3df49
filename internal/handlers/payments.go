package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/cinewave/momoflow/internal/models"
	"github.com/cinewave/momoflow/internal/service"
)

type initiateRequest struct {
	ItemRef  string              `json:"itemRef"`
	Kind     models.PurchaseKind `json:"kind"`
	Amount   int64               `json:"amount"`
	Currency string              `json:"currency"`
	Phone    string              `json:"phone"`
	PayerID  string              `json:"payerId"`
}

type initiateResponse struct {
	Success bool          `json:"success"`
	ID      string        `json:"id"`
	Status  models.Status `json:"status"`
	Message string        `json:"message,omitempty"`
}

type statusResponse struct {
	Status models.Status `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

type confirmRequest struct {
	Status models.Status `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

type historyResponse struct {
	Success  bool                 `json:"success"`
	Payments []transactionPayload `json:"payments"`
	Count    int                  `json:"count"`
}

// InitiatePayment handles POST /api/v1/payments/momo
func (h *Handler) InitiatePayment(w http.ResponseWriter, r *http.Request) {
	var req initiateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorPayload{
			Error:   "invalid_request",
			Message: "request body must be valid JSON",
		})
		return
	}

	tx, err := h.initiator.Initiate(r.Context(), service.InitiateParams{
		ItemRef:  req.ItemRef,
		Kind:     req.Kind,
		Amount:   req.Amount,
		Currency: req.Currency,
		Phone:    req.Phone,
		PayerID:  req.PayerID,
	})
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	message := "awaiting payer approval"
	if tx.Status == models.StatusSuccessful {
		message = "payment confirmed"
	}

	h.writeJSON(w, http.StatusOK, initiateResponse{
		Success: true,
		ID:      tx.ID,
		Status:  tx.Status,
		Message: message,
	})
}

// PaymentStatus handles GET /api/v1/payments/momo/status/{transactionId}
func (h *Handler) PaymentStatus(w http.ResponseWriter, r *http.Request) {
	tx, err := h.statuses.Status(r.Context(), r.PathValue("transactionId"))
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	// TIMEOUT is a client-side verdict; the gateway only ever reports the
	// transaction as pending or decided.
	status := tx.Status
	if status == models.StatusTimeout {
		status = models.StatusPending
	}

	h.writeJSON(w, http.StatusOK, statusResponse{
		Status: status,
		Reason: tx.FailureReason,
	})
}

// ConfirmPayment handles PATCH /api/v1/payments/{transactionId}/confirm
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorPayload{
			Error:   "invalid_request",
			Message: "request body must be valid JSON",
		})
		return
	}

	tx, err := h.decider.Decide(r.Context(), r.PathValue("transactionId"), req.Status, req.Reason)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	h.writeJSON(w, http.StatusOK, toTransactionPayload(*tx))
}

// PaymentHistory handles GET /api/v1/payments/user/{payerId}
func (h *Handler) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	limit := queryInt(r, "limit", 20)
	offset := queryInt(r, "offset", 0)

	transactions, err := h.history.History(r.Context(), r.PathValue("payerId"), limit, offset)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	payments := make([]transactionPayload, 0, len(transactions))
	for _, tx := range transactions {
		payments = append(payments, toTransactionPayload(tx))
	}

	h.writeJSON(w, http.StatusOK, historyResponse{
		Success:  true,
		Payments: payments,
		Count:    len(payments),
	})
}

func queryInt(r *http.Request, name string, defaultValue int) int {
	valueStr := r.URL.Query().Get(name)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil || value < 0 {
		return defaultValue
	}
	return value
}
