package paymentgateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Provider payment statuses.
const (
	StatusPending     = "pending"
	StatusApproved    = "approved"
	StatusAuthorized  = "authorized"
	StatusInProcess   = "in_process"
	StatusInMediation = "in_mediation"
	StatusRejected    = "rejected"
	StatusCancelled   = "cancelled"
	StatusRefunded    = "refunded"
	StatusChargedBack = "charged_back"

	DetailAccredited = "accredited"
)

const (
	IdentificationCPF = "CPF"

	MethodIDPix    = "pix"
	MethodIDBoleto = "bolbradesco"

	DefaultDescriptor  = "Compra Online"
	DefaultDescription = "Pagamento"
)

// ResourceID is a provider identifier. The provider sends it as a JSON number
// on payment resources and as a string on webhook bodies.
type ResourceID string

func (id *ResourceID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ResourceID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid resource id %s: %w", string(b), err)
	}
	*id = ResourceID(n.String())
	return nil
}

// Validate rejects numeric ids that are not integers. Decoding keeps them as
// sent so bodies that never read the id still decode.
func (id ResourceID) Validate() error {
	s := string(id)
	if _, err := strconv.ParseInt(s, 10, 64); err == nil {
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err == nil {
		return fmt.Errorf("invalid resource id %s: not an integer", s)
	}
	return nil
}

func (id ResourceID) String() string {
	return string(id)
}

type Identification struct {
	Type   string `json:"type"`
	Number string `json:"number"`
}

type Address struct {
	ZipCode      string `json:"zip_code"`
	StreetName   string `json:"street_name"`
	StreetNumber string `json:"street_number"`
	Neighborhood string `json:"neighborhood"`
	City         string `json:"city"`
	FederalUnit  string `json:"federal_unit"`
}

type Payer struct {
	Email          string         `json:"email"`
	FirstName      string         `json:"first_name,omitempty"`
	LastName       string         `json:"last_name,omitempty"`
	Identification Identification `json:"identification"`
	Address        *Address       `json:"address,omitempty"`
}

// PaymentPayload is the body of POST /v1/payments.
type PaymentPayload struct {
	PaymentMethodID     string  `json:"payment_method_id,omitempty"`
	TransactionAmount   float64 `json:"transaction_amount"`
	Description         string  `json:"description"`
	DateOfExpiration    string  `json:"date_of_expiration,omitempty"`
	Token               string  `json:"token,omitempty"`
	Installments        int     `json:"installments,omitempty"`
	Payer               Payer   `json:"payer"`
	ExternalReference   string  `json:"external_reference"`
	StatementDescriptor string  `json:"statement_descriptor,omitempty"`
	NotificationURL     string  `json:"notification_url,omitempty"`
}

type Cardholder struct {
	Name           string         `json:"name"`
	Identification Identification `json:"identification"`
}

// CardData is the body of POST /v1/card_tokens.
type CardData struct {
	CardNumber      string     `json:"card_number"`
	ExpirationMonth string     `json:"expiration_month"`
	ExpirationYear  string     `json:"expiration_year"`
	SecurityCode    string     `json:"security_code"`
	Cardholder      Cardholder `json:"cardholder"`
}

type CardToken struct {
	ID string `json:"id"`
}

// PaymentResponse is the subset of the provider payment resource the service
// relies on. Raw keeps the full body for callers that echo it back.
type PaymentResponse struct {
	ID                ResourceID      `json:"id"`
	Status            string          `json:"status"`
	StatusDetail      string          `json:"status_detail"`
	PaymentMethodID   string          `json:"payment_method_id"`
	ExternalReference string          `json:"external_reference"`
	TransactionAmount float64         `json:"transaction_amount"`
	DateOfExpiration  string          `json:"date_of_expiration,omitempty"`
	Raw               json.RawMessage `json:"-"`
}

// ErrorResponse is the provider error body. Only status and status_detail are
// used for message mapping.
type ErrorResponse struct {
	Message      string `json:"message"`
	Error        string `json:"error"`
	Status       any    `json:"status"`
	StatusDetail string `json:"status_detail"`
}

// NotificationData is the data object of a provider webhook body.
type NotificationData struct {
	ID ResourceID `json:"id"`
}

const ActionPaymentUpdated = "payment.updated"
