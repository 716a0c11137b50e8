package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentCreated       = "payment.created"
	EventTypePaymentStatusChanged = "payment.status_changed"
)

type PaymentCreatedEvent struct {
	BaseEvent
	PaymentID     int64  `json:"payment_id"`
	TransactionID string `json:"transaction_id"`
	Method        string `json:"payment_method"`
	Status        string `json:"payment_status"`
	Amount        string `json:"amount"`
}

func NewPaymentCreatedEvent(paymentID int64, transactionID, method, status, amount string) *PaymentCreatedEvent {
	return &PaymentCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":     paymentID,
				"transaction_id": transactionID,
				"payment_method": method,
				"payment_status": status,
				"amount":         amount,
			},
		},
		PaymentID:     paymentID,
		TransactionID: transactionID,
		Method:        method,
		Status:        status,
		Amount:        amount,
	}
}

// PaymentStatusChangedEvent is emitted only when a stored status actually moves.
type PaymentStatusChangedEvent struct {
	BaseEvent
	PaymentID      int64  `json:"payment_id"`
	TransactionID  string `json:"transaction_id"`
	PreviousStatus string `json:"previous_status"`
	Status         string `json:"payment_status"`
	ProviderStatus string `json:"provider_status"`
	ProviderDetail string `json:"provider_status_detail"`
}

func NewPaymentStatusChangedEvent(paymentID int64, transactionID, previous, status, providerStatus, providerDetail string) *PaymentStatusChangedEvent {
	return &PaymentStatusChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentStatusChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":             paymentID,
				"transaction_id":         transactionID,
				"previous_status":        previous,
				"payment_status":         status,
				"provider_status":        providerStatus,
				"provider_status_detail": providerDetail,
			},
		},
		PaymentID:      paymentID,
		TransactionID:  transactionID,
		PreviousStatus: previous,
		Status:         status,
		ProviderStatus: providerStatus,
		ProviderDetail: providerDetail,
	}
}
