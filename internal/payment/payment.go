package payment

import (
	"encoding/json"
	"time"

	paymentDatamodel "github.com/frahmantamala/checkout-payments/internal/core/datamodel/payment"
	gw "github.com/frahmantamala/checkout-payments/internal/core/datamodel/paymentgateway"
	"github.com/shopspring/decimal"
)

const (
	MethodCreditCard = paymentDatamodel.MethodCreditCard
	MethodPix        = paymentDatamodel.MethodPix
	MethodBoleto     = paymentDatamodel.MethodBoleto

	StatusPending   = paymentDatamodel.StatusPending
	StatusPaid      = paymentDatamodel.StatusPaid
	StatusFailed    = paymentDatamodel.StatusFailed
	StatusCancelled = paymentDatamodel.StatusCancelled
)

type Payment struct {
	ID            int64
	Amount        decimal.Decimal
	TransactionID string
	PaymentMethod string
	PaymentStatus string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// PaymentView is the public representation returned by the list and get endpoints.
type PaymentView struct {
	ID            int64       `json:"id"`
	Amount        json.Number `json:"amount"`
	TransactionID string      `json:"transaction_id"`
	PaymentMethod string      `json:"payment_method"`
	PaymentStatus string      `json:"payment_status"`
}

func (p *Payment) View() PaymentView {
	return PaymentView{
		ID:            p.ID,
		Amount:        json.Number(p.Amount.StringFixed(2)),
		TransactionID: p.TransactionID,
		PaymentMethod: p.PaymentMethod,
		PaymentStatus: p.PaymentStatus,
	}
}

func Views(payments []*Payment) []PaymentView {
	views := make([]PaymentView, len(payments))
	for i, p := range payments {
		views[i] = p.View()
	}
	return views
}

// MapProviderStatus turns the provider (status, status_detail) pair into a
// local status. Only an accredited approval counts as paid.
func MapProviderStatus(status, statusDetail string) string {
	switch {
	case status == gw.StatusApproved && statusDetail == gw.DetailAccredited:
		return StatusPaid
	case status == gw.StatusRejected:
		return StatusFailed
	case status == gw.StatusCancelled:
		return StatusCancelled
	default:
		return StatusPending
	}
}

// MapCardStatus is the immediate outcome of a card charge.
func MapCardStatus(status string) string {
	switch status {
	case gw.StatusApproved:
		return StatusPaid
	case gw.StatusRejected:
		return StatusFailed
	default:
		return StatusPending
	}
}

func IsValidStatus(status string) bool {
	switch status {
	case StatusPending, StatusPaid, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

func NewPayment(method, transactionID, status string, amount decimal.Decimal) *Payment {
	now := time.Now()
	return &Payment{
		Amount:        amount,
		TransactionID: transactionID,
		PaymentMethod: method,
		PaymentStatus: status,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func ToDataModel(p *Payment) *paymentDatamodel.Payment {
	return &paymentDatamodel.Payment{
		ID:            p.ID,
		Amount:        p.Amount,
		TransactionID: p.TransactionID,
		PaymentMethod: p.PaymentMethod,
		PaymentStatus: p.PaymentStatus,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func FromDataModel(p *paymentDatamodel.Payment) *Payment {
	return &Payment{
		ID:            p.ID,
		Amount:        p.Amount,
		TransactionID: p.TransactionID,
		PaymentMethod: p.PaymentMethod,
		PaymentStatus: p.PaymentStatus,
		CreatedAt:     p.CreatedAt,
		UpdatedAt:     p.UpdatedAt,
	}
}

func FromDataModelSlice(payments []*paymentDatamodel.Payment) []*Payment {
	result := make([]*Payment, len(payments))
	for i, p := range payments {
		result[i] = FromDataModel(p)
	}
	return result
}
