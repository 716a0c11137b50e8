package payment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/frahmantamala/checkout-payments/internal/core/events"
)

// EventHandler writes an audit trail of payment lifecycle events.
type EventHandler struct {
	logger *slog.Logger
}

func NewEventHandler(logger *slog.Logger) *EventHandler {
	return &EventHandler{
		logger: logger.With("component", "payment_audit"),
	}
}

func (h *EventHandler) HandlePaymentCreated(ctx context.Context, event events.Event) error {
	created, ok := event.(*events.PaymentCreatedEvent)
	if !ok {
		h.logger.Error("invalid event type for payment created handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentCreatedEvent, got %T", event)
	}

	h.logger.InfoContext(ctx, "audit: payment created",
		"event_id", created.EventID(),
		"occurred_at", created.OccurredAt(),
		"payment_id", created.PaymentID,
		"transaction_id", created.TransactionID,
		"payment_method", created.Method,
		"payment_status", created.Status,
		"amount", created.Amount)

	return nil
}

func (h *EventHandler) HandlePaymentStatusChanged(ctx context.Context, event events.Event) error {
	changed, ok := event.(*events.PaymentStatusChangedEvent)
	if !ok {
		h.logger.Error("invalid event type for payment status handler", "event_type", event.EventType())
		return fmt.Errorf("expected PaymentStatusChangedEvent, got %T", event)
	}

	h.logger.InfoContext(ctx, "audit: payment status changed",
		"event_id", changed.EventID(),
		"occurred_at", changed.OccurredAt(),
		"payment_id", changed.PaymentID,
		"transaction_id", changed.TransactionID,
		"previous_status", changed.PreviousStatus,
		"payment_status", changed.Status,
		"provider_status", changed.ProviderStatus,
		"provider_status_detail", changed.ProviderDetail)

	return nil
}

func (h *EventHandler) RegisterEventHandlers(eventBus *events.EventBus) {
	eventBus.Subscribe(events.EventTypePaymentCreated, h.HandlePaymentCreated)
	eventBus.Subscribe(events.EventTypePaymentStatusChanged, h.HandlePaymentStatusChanged)

	h.logger.Info("payment event handlers registered",
		"handlers", []string{events.EventTypePaymentCreated, events.EventTypePaymentStatusChanged})
}
