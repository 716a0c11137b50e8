package payment

import (
	"net/http"

	errors "github.com/frahmantamala/checkout-payments/internal"
	"github.com/frahmantamala/checkout-payments/internal/transport"
)

type WebhookHandler struct {
	*transport.BaseHandler
	paymentService ServiceAPI
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, paymentService ServiceAPI) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler:    baseHandler,
		paymentService: paymentService,
	}
}

// HandleNotification handles POST /payments/notification. The body status is
// never trusted: the service re-reads the payment from the provider.
func (h *WebhookHandler) HandleNotification(w http.ResponseWriter, r *http.Request) {
	var dto NotificationDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		if appErr.Code == errors.ErrCodeRequestTooLarge {
			h.HandleError(w, appErr)
			return
		}
		h.HandleError(w, errors.NewValidationError("invalid notification body", errors.ErrCodeInvalidNotification).WithCause(appErr))
		return
	}

	h.Logger.Info("received payment notification",
		"action", dto.Action,
		"type", dto.Type,
		"transaction_id", dto.TransactionID())

	result, err := h.paymentService.HandleNotification(r.Context(), &dto)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("payment notification processed",
		"transaction_id", result.TransactionID,
		"payment_status", result.Status,
		"updated", result.Updated)

	h.WriteJSON(w, http.StatusOK, result)
}
