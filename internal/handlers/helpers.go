package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/cinewave/momoflow/internal/models"
	"github.com/cinewave/momoflow/internal/service"
)

type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type transactionPayload struct {
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
	ID        string              `json:"id"`
	ItemRef   string              `json:"itemRef"`
	Kind      models.PurchaseKind `json:"kind"`
	Currency  string              `json:"currency"`
	PayerID   string              `json:"payerId"`
	Status    models.Status       `json:"status"`
	Reason    string              `json:"reason,omitempty"`
	Amount    int64               `json:"amount"`
}

func toTransactionPayload(tx models.Transaction) transactionPayload {
	return transactionPayload{
		ID:        tx.ID,
		ItemRef:   tx.ItemRef,
		Kind:      tx.Kind,
		Amount:    tx.Amount,
		Currency:  tx.Currency,
		PayerID:   tx.PayerID,
		Status:    tx.Status,
		Reason:    tx.FailureReason,
		CreatedAt: tx.CreatedAt,
		UpdatedAt: tx.UpdatedAt,
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

// writeServiceError maps a service error to an HTTP response
func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	svcErr := extractServiceError(err)
	if svcErr == nil {
		h.logger.Error("unexpected error", "error", err)
		h.writeJSON(w, http.StatusInternalServerError, errorPayload{
			Error:   service.ErrCodeInternalError,
			Message: "internal error",
		})
		return
	}

	h.writeJSON(w, statusCodeFor(svcErr.Code), errorPayload{
		Error:   svcErr.Code,
		Message: svcErr.Message,
	})
}

func statusCodeFor(code string) int {
	switch code {
	case service.ErrCodeInvalidPhone,
		service.ErrCodeInvalidAmount,
		service.ErrCodeInvalidKind,
		service.ErrCodeInvalidStatus:
		return http.StatusBadRequest
	case service.ErrCodeInsufficientFunds:
		return http.StatusPaymentRequired
	case service.ErrCodeWalletNotFound,
		service.ErrCodeTransactionNotFound:
		return http.StatusNotFound
	case service.ErrCodeAlreadyDecided:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func extractServiceError(err error) *service.ServiceError {
	var svcErr *service.ServiceError
	if errors.As(err, &svcErr) {
		return svcErr
	}
	return nil
}
