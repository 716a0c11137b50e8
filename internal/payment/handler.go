package payment

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	errors "github.com/frahmantamala/checkout-payments/internal"
	"github.com/frahmantamala/checkout-payments/internal/transport"
	"github.com/frahmantamala/checkout-payments/pkg/logger"
	"github.com/go-chi/chi"
)

const HeaderIdempotencyKey = "X-Idempotency-Key"

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI, lg *slog.Logger) *Handler {
	if lg == nil {
		lg = logger.LoggerWrapper()
	}
	return &Handler{
		BaseHandler: transport.NewBaseHandler(lg),
		Service:     service,
	}
}

// CheckoutResponse echoes the provider resource next to the stored record.
type CheckoutResponse struct {
	Payment PaymentView     `json:"payment"`
	Gateway json.RawMessage `json:"gateway,omitempty"`
}

func newCheckoutResponse(result *CheckoutResult) CheckoutResponse {
	resp := CheckoutResponse{Payment: result.Payment.View()}
	if result.Gateway != nil && len(result.Gateway.Raw) > 0 {
		resp.Gateway = result.Gateway.Raw
	}
	return resp
}

// CheckoutPix handles POST /payments/checkout/pix
func (h *Handler) CheckoutPix(w http.ResponseWriter, r *http.Request) {
	var dto PixPaymentDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	result, err := h.Service.CheckoutPix(r.Context(), &dto, r.Header.Get(HeaderIdempotencyKey))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, newCheckoutResponse(result))
}

// CheckoutBoleto handles POST /payments/checkout/boleto
func (h *Handler) CheckoutBoleto(w http.ResponseWriter, r *http.Request) {
	var dto BoletoPaymentDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	result, err := h.Service.CheckoutBoleto(r.Context(), &dto, r.Header.Get(HeaderIdempotencyKey))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, newCheckoutResponse(result))
}

// CheckoutCard handles POST /payments/checkout/card
func (h *Handler) CheckoutCard(w http.ResponseWriter, r *http.Request) {
	var dto CardPaymentDTO
	if appErr := h.DecodeJSON(r, &dto); appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	result, err := h.Service.CheckoutCard(r.Context(), &dto, r.Header.Get(HeaderIdempotencyKey))
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.Logger.Info("CheckoutCard: card payment processed",
		"payment_id", result.Payment.ID,
		"payment_status", result.Payment.PaymentStatus)

	h.WriteJSON(w, http.StatusCreated, newCheckoutResponse(result))
}

// ListPayments handles GET /payments/list
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.Service.ListPayments(r.Context())
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, Views(payments))
}

// GetPayment handles GET /payments/{id}
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, appErr := paymentIDParam(r)
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	p, err := h.Service.GetPayment(r.Context(), id)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, p.View())
}

// DeletePayment handles DELETE /payments/delete/{id}
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, appErr := paymentIDParam(r)
	if appErr != nil {
		h.HandleError(w, appErr)
		return
	}

	if err := h.Service.DeletePayment(r.Context(), id); err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func paymentIDParam(r *http.Request) (int64, *errors.AppError) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.NewValidationError("invalid payment ID", errors.ErrCodeInvalidPaymentID)
	}
	return id, nil
}
