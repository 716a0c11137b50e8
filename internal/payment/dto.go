package payment

import (
	"strings"

	errors "github.com/frahmantamala/checkout-payments/internal"
	"github.com/frahmantamala/checkout-payments/internal/core/common/validation"
	gw "github.com/frahmantamala/checkout-payments/internal/core/datamodel/paymentgateway"
	"github.com/shopspring/decimal"
)

const DefaultDescription = "Pagamento via Mercado Pago"

// amount is stored as numeric(12,2)
const (
	amountPrecision = 12
	amountScale     = 2
)

type CheckoutBaseDTO struct {
	PayerEmail        string          `json:"payer_email" validate:"required,email"`
	TransactionAmount decimal.Decimal `json:"transaction_amount" validate:"required"`
	Description       string          `json:"description" validate:"max=255"`
}

func (dto *CheckoutBaseDTO) applyDefaults() {
	dto.PayerEmail = strings.TrimSpace(dto.PayerEmail)
	if strings.TrimSpace(dto.Description) == "" {
		dto.Description = DefaultDescription
	}
}

func (dto *CheckoutBaseDTO) validateAmount() *errors.AppError {
	validator := validation.NewValidator()
	validator.Field("transaction_amount", dto.TransactionAmount).Money(amountPrecision, amountScale)
	return validator.Validate()
}

type PixPaymentDTO struct {
	CheckoutBaseDTO
	PayerCPF string `json:"payer_cpf" validate:"required,number,min=11,max=14"`
}

func (dto *PixPaymentDTO) Validate() error {
	dto.applyDefaults()
	if appErr := validation.Merge(validation.Struct(dto), dto.validateAmount()); appErr != nil {
		return appErr
	}
	return nil
}

type BoletoPaymentDTO struct {
	CheckoutBaseDTO
	PayerFirstName string `json:"payer_first_name" validate:"required"`
	PayerLastName  string `json:"payer_last_name" validate:"required"`
	PayerCPF       string `json:"payer_cpf" validate:"required,number,min=11,max=14"`
	ZipCode        string `json:"zip_code" validate:"required"`
	StreetName     string `json:"street_name" validate:"required"`
	StreetNumber   string `json:"street_number" validate:"required"`
	Neighborhood   string `json:"neighborhood" validate:"required"`
	City           string `json:"city" validate:"required"`
	FederalUnit    string `json:"federal_unit" validate:"required,len=2"`
}

func (dto *BoletoPaymentDTO) Validate() error {
	dto.applyDefaults()
	if appErr := validation.Merge(validation.Struct(dto), dto.validateAmount()); appErr != nil {
		return appErr
	}
	return nil
}

func (dto *BoletoPaymentDTO) Address() gw.Address {
	return gw.Address{
		ZipCode:      dto.ZipCode,
		StreetName:   dto.StreetName,
		StreetNumber: dto.StreetNumber,
		Neighborhood: dto.Neighborhood,
		City:         dto.City,
		FederalUnit:  strings.ToUpper(dto.FederalUnit),
	}
}

type CardPaymentDTO struct {
	CheckoutBaseDTO
	CardNumber      string `json:"card_number" validate:"required,min=13,max=19"`
	ExpirationMonth string `json:"expiration_month" validate:"required,min=1,max=2"`
	ExpirationYear  string `json:"expiration_year" validate:"required,len=4"`
	SecurityCode    string `json:"security_code" validate:"required,min=3,max=4"`
	CardholderName  string `json:"cardholder_name" validate:"required"`
	PayerCPF        string `json:"payer_cpf" validate:"required,number,min=11,max=14"`
	Installments    int    `json:"installments" validate:"omitempty,min=1,max=48"`
}

func (dto *CardPaymentDTO) Validate() error {
	dto.applyDefaults()
	if dto.Installments == 0 {
		dto.Installments = 1
	}
	if appErr := validation.Merge(validation.Struct(dto), dto.validateAmount()); appErr != nil {
		return appErr
	}
	return nil
}

func (dto *CardPaymentDTO) CardData() gw.CardData {
	return gw.CardData{
		CardNumber:      dto.CardNumber,
		ExpirationMonth: dto.ExpirationMonth,
		ExpirationYear:  dto.ExpirationYear,
		SecurityCode:    dto.SecurityCode,
		Cardholder: gw.Cardholder{
			Name: dto.CardholderName,
			Identification: gw.Identification{
				Type:   gw.IdentificationCPF,
				Number: dto.PayerCPF,
			},
		},
	}
}

// NotificationDTO is the provider webhook body. Only action and data.id are read.
type NotificationDTO struct {
	Action string              `json:"action"`
	Type   string              `json:"type,omitempty"`
	Data   gw.NotificationData `json:"data"`
}

func (dto *NotificationDTO) IsPaymentUpdate() bool {
	return dto.Action == gw.ActionPaymentUpdated
}

func (dto *NotificationDTO) TransactionID() string {
	return strings.TrimSpace(dto.Data.ID.String())
}

func (dto *NotificationDTO) Validate() error {
	if !dto.IsPaymentUpdate() {
		return nil
	}
	if dto.TransactionID() == "" {
		return errors.NewValidationFieldError("data.id", "data.id is required", errors.ErrCodeInvalidNotification)
	}
	if err := dto.Data.ID.Validate(); err != nil {
		return errors.NewValidationFieldError("data.id", "data.id must be an integer", errors.ErrCodeInvalidNotification)
	}
	return nil
}

type NotificationResult struct {
	Message       string `json:"message"`
	TransactionID string `json:"transaction_id,omitempty"`
	Status        string `json:"payment_status,omitempty"`
	Updated       bool   `json:"updated"`
}

const (
	NotificationMessageUpdated = "Payment updated successfully."
	NotificationMessageIgnored = "Notification ignored."
)

// CheckoutResult pairs the stored payment with the provider resource it came from.
type CheckoutResult struct {
	Payment *Payment
	Gateway *gw.PaymentResponse
}
