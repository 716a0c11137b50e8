package payment

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	MethodCreditCard = "credit_card"
	MethodPix        = "pix"
	MethodBoleto     = "boleto"
)

const (
	StatusPending   = "pending"
	StatusPaid      = "paid"
	StatusFailed    = "failed"
	StatusCancelled = "cancelled"
)

type Payment struct {
	ID            int64           `gorm:"primaryKey"`
	Amount        decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	TransactionID string          `gorm:"column:transaction_id;not null;uniqueIndex"`
	PaymentMethod string          `gorm:"column:payment_method;not null"`
	PaymentStatus string          `gorm:"column:payment_status;not null;default:pending"`
	CreatedAt     time.Time       `gorm:"column:created_at"`
	UpdatedAt     time.Time       `gorm:"column:updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}
