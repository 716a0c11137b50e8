package paymentgateway

import (
	"fmt"
	"net/http"
)

// StatusMessages describes every provider payment status.
var StatusMessages = map[string]string{
	"unknown":      "Unknown status.",
	"pending":      "The payer has not finished the payment process yet (for example, after generating a boleto).",
	"approved":     "The payment was approved and credited.",
	"authorized":   "The payment was authorized but not captured yet.",
	"in_process":   "The payment is under review.",
	"in_mediation": "The payer started a dispute.",
	"rejected":     "The payment was rejected (the payer may try again).",
	"cancelled":    "The payment was cancelled by one of the parties or the payment deadline expired.",
	"refunded":     "The payment was refunded to the payer.",
	"charged_back": "A chargeback was applied to the payer's credit card.",
}

// StatusDetailMessages describes provider status_detail codes.
var StatusDetailMessages = map[string]string{
	"unknown":                              "Unknown status.",
	"accredited":                           "Payment credited.",
	"partially_refunded":                   "The payment has at least one partial refund.",
	"pending_capture":                      "The payment was authorized and is waiting for capture.",
	"offline_process":                      "The payment is being processed offline because online processing is unavailable.",
	"pending_contingency":                  "Temporary failure. The payment will be processed later.",
	"pending_review_manual":                "The payment is under manual review for approval or rejection.",
	"pending_waiting_transfer":             "Waiting for the payer to finish the process at their bank.",
	"pending_waiting_payment":              "Pending until the payer completes the payment.",
	"pending_challenge":                    "Credit card payment waiting for challenge confirmation.",
	"bank_error":                           "Payment rejected because of a bank error.",
	"cc_rejected_3ds_mandatory":            "Payment rejected for missing a mandatory 3DS challenge.",
	"cc_rejected_bad_filled_card_number":   "Incorrect card number.",
	"cc_rejected_bad_filled_date":          "Incorrect expiration date.",
	"cc_rejected_bad_filled_other":         "Incorrect card details.",
	"cc_rejected_bad_filled_security_code": "Incorrect security code (CVV).",
	"cc_rejected_blacklist":                "The card is disabled or on a restriction list (theft/fraud).",
	"cc_rejected_call_for_authorize":       "The payment method requires prior authorization for this amount.",
	"cc_rejected_card_disabled":            "The card is inactive.",
	"cc_rejected_duplicated_payment":       "Duplicated payment.",
	"cc_rejected_high_risk":                "Declined by fraud prevention.",
	"cc_rejected_insufficient_amount":      "Insufficient card limit.",
	"cc_rejected_invalid_installments":     "Invalid number of installments.",
	"cc_rejected_max_attempts":             "Maximum number of attempts exceeded.",
	"cc_rejected_other_reason":             "Generic processor error.",
	"cc_rejected_time_out":                 "The transaction timed out.",
	"cc_amount_rate_limit_exceeded":        "The amount limit for this payment method was exceeded.",
	"rejected_high_risk":                   "Rejected on fraud suspicion.",
	"rejected_insufficient_data":           "Rejected for missing required information.",
	"rejected_by_bank":                     "Operation declined by the bank.",
	"rejected_by_regulations":              "Payment declined due to regulations.",
	"rejected_by_biz_rule":                 "Payment declined due to business rules.",
}

const (
	unknownStatusMessage = "Unknown error."
	unknownDetailMessage = "Unknown detail."
)

func StatusMessage(status string) string {
	if msg, ok := StatusMessages[status]; ok {
		return msg
	}
	return unknownStatusMessage
}

func StatusDetailMessage(detail string) string {
	if msg, ok := StatusDetailMessages[detail]; ok {
		return msg
	}
	return unknownDetailMessage
}

// GatewayError is the single error kind returned for any failed provider call.
type GatewayError struct {
	StatusCode   int
	Status       string
	StatusDetail string
	Message      string
	Cause        error
}

func (e *GatewayError) Error() string {
	return e.Message
}

func (e *GatewayError) Unwrap() error {
	return e.Cause
}

func newAPIError(statusCode int, status, detail string) *GatewayError {
	return &GatewayError{
		StatusCode:   statusCode,
		Status:       status,
		StatusDetail: detail,
		Message: fmt.Sprintf("payment gateway error (%d): %s - %s",
			statusCode, StatusMessage(status), StatusDetailMessage(detail)),
	}
}

func newRawAPIError(statusCode int, body string) *GatewayError {
	return &GatewayError{
		StatusCode: statusCode,
		Message:    fmt.Sprintf("payment gateway error (%d): %s", statusCode, body),
	}
}

func newTransportError(op string, cause error) *GatewayError {
	return &GatewayError{
		StatusCode: http.StatusBadGateway,
		Message:    fmt.Sprintf("payment gateway request failed (%s): %v", op, cause),
		Cause:      cause,
	}
}
