package paymentgateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gw "github.com/frahmantamala/checkout-payments/internal/core/datamodel/paymentgateway"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	pathCardTokens = "/v1/card_tokens"
	pathPayments   = "/v1/payments"

	headerIdempotencyKey = "X-Idempotency-Key"

	// expirationLayout is ISO-8601 with milliseconds and a numeric offset.
	expirationLayout = "2006-01-02T15:04:05.000-07:00"

	pixExpiration           = 30 * time.Minute
	defaultBoletoExpiryDays = 3
)

type Config struct {
	BaseURL         string
	AccessToken     string
	NotificationURL string
	Location        *time.Location
	Timeout         time.Duration

	// Optional overrides, mostly for tests.
	HTTPClient *http.Client
	Now        func() time.Time
	NewID      func() string
}

type Client struct {
	baseURL         string
	accessToken     string
	notificationURL string
	location        *time.Location
	httpClient      *http.Client
	logger          *slog.Logger
	now             func() time.Time
	newID           func() string
}

func NewClient(config Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	location := config.Location
	if location == nil {
		location = time.UTC
	}

	now := config.Now
	if now == nil {
		now = time.Now
	}

	newID := config.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	return &Client{
		baseURL:         strings.TrimRight(config.BaseURL, "/"),
		accessToken:     config.AccessToken,
		notificationURL: config.NotificationURL,
		location:        location,
		httpClient:      httpClient,
		logger:          logger,
		now:             now,
		newID:           newID,
	}
}

type PixRequest struct {
	Amount         decimal.Decimal
	PayerEmail     string
	PayerCPF       string
	Description    string
	IdempotencyKey string
}

type BoletoRequest struct {
	Amount         decimal.Decimal
	PayerEmail     string
	PayerFirstName string
	PayerLastName  string
	PayerCPF       string
	Address        gw.Address
	Description    string
	DaysToExpire   int
	IdempotencyKey string
}

type CardRequest struct {
	Amount         decimal.Decimal
	PayerEmail     string
	PayerCPF       string
	Card           gw.CardData
	Installments   int
	Description    string
	IdempotencyKey string
}

func (c *Client) PayWithPix(ctx context.Context, req PixRequest) (*gw.PaymentResponse, error) {
	payload := &gw.PaymentPayload{
		PaymentMethodID:   gw.MethodIDPix,
		TransactionAmount: req.Amount.InexactFloat64(),
		Description:       descriptionOrDefault(req.Description),
		DateOfExpiration:  c.expirationDate(pixExpiration),
		Payer: gw.Payer{
			Email:          req.PayerEmail,
			Identification: cpf(req.PayerCPF),
		},
		ExternalReference: c.externalReference("PIX"),
	}

	return c.createPayment(ctx, payload, req.IdempotencyKey)
}

func (c *Client) PayWithBoleto(ctx context.Context, req BoletoRequest) (*gw.PaymentResponse, error) {
	days := req.DaysToExpire
	if days <= 0 {
		days = defaultBoletoExpiryDays
	}

	address := req.Address
	payload := &gw.PaymentPayload{
		PaymentMethodID:   gw.MethodIDBoleto,
		TransactionAmount: req.Amount.InexactFloat64(),
		Description:       descriptionOrDefault(req.Description),
		DateOfExpiration:  c.expirationDate(time.Duration(days) * 24 * time.Hour),
		Payer: gw.Payer{
			Email:          req.PayerEmail,
			FirstName:      req.PayerFirstName,
			LastName:       req.PayerLastName,
			Identification: cpf(req.PayerCPF),
			Address:        &address,
		},
		ExternalReference: c.externalReference("BOLETO"),
	}

	return c.createPayment(ctx, payload, req.IdempotencyKey)
}

// PayWithCard exchanges the card data for a token and charges it.
func (c *Client) PayWithCard(ctx context.Context, req CardRequest) (*gw.PaymentResponse, error) {
	token, err := c.createCardToken(ctx, req.Card)
	if err != nil {
		return nil, err
	}

	installments := req.Installments
	if installments <= 0 {
		installments = 1
	}

	payload := &gw.PaymentPayload{
		TransactionAmount: req.Amount.InexactFloat64(),
		Token:             token.ID,
		Description:       descriptionOrDefault(req.Description),
		Installments:      installments,
		Payer: gw.Payer{
			Email:          req.PayerEmail,
			Identification: cpf(req.PayerCPF),
		},
		ExternalReference:   c.externalReference("CARTAO"),
		StatementDescriptor: gw.DefaultDescriptor,
	}

	return c.createPayment(ctx, payload, req.IdempotencyKey)
}

// GetPaymentInfo fetches the authoritative payment resource.
func (c *Client) GetPaymentInfo(ctx context.Context, transactionID string) (*gw.PaymentResponse, error) {
	if strings.TrimSpace(transactionID) == "" {
		return nil, fmt.Errorf("transaction id is required")
	}

	var resp gw.PaymentResponse
	raw, err := c.do(ctx, http.MethodGet, pathPayments+"/"+url.PathEscape(transactionID), nil, "", &resp)
	if err != nil {
		c.logger.Error("failed to fetch payment info", "transaction_id", transactionID, "error", err)
		return nil, err
	}
	resp.Raw = raw

	c.logger.Debug("payment info fetched",
		"transaction_id", transactionID,
		"status", resp.Status,
		"status_detail", resp.StatusDetail)

	return &resp, nil
}

func (c *Client) createCardToken(ctx context.Context, card gw.CardData) (*gw.CardToken, error) {
	var token gw.CardToken
	if _, err := c.do(ctx, http.MethodPost, pathCardTokens, card, "", &token); err != nil {
		c.logger.Error("card token request failed", "error", err)
		return nil, err
	}
	if token.ID == "" {
		return nil, &GatewayError{
			StatusCode: http.StatusBadGateway,
			Message:    "payment gateway error: card token response without id",
		}
	}
	return &token, nil
}

func (c *Client) createPayment(ctx context.Context, payload *gw.PaymentPayload, idempotencyKey string) (*gw.PaymentResponse, error) {
	if c.notificationURL != "" {
		payload.NotificationURL = c.notificationURL
	}
	if idempotencyKey == "" {
		idempotencyKey = c.newID()
	}

	c.logger.Info("creating payment",
		"payment_method_id", payload.PaymentMethodID,
		"amount", payload.TransactionAmount,
		"external_reference", payload.ExternalReference)

	var resp gw.PaymentResponse
	raw, err := c.do(ctx, http.MethodPost, pathPayments, payload, idempotencyKey, &resp)
	if err != nil {
		c.logger.Error("payment creation failed",
			"external_reference", payload.ExternalReference,
			"error", err)
		return nil, err
	}
	resp.Raw = raw

	c.logger.Info("payment created",
		"transaction_id", resp.ID,
		"status", resp.Status,
		"status_detail", resp.StatusDetail,
		"external_reference", payload.ExternalReference)

	return &resp, nil
}

// do performs one provider call. Any non-2xx answer becomes a *GatewayError.
func (c *Client) do(ctx context.Context, method, path string, payload any, idempotencyKey string, out any) (json.RawMessage, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.accessToken)
	if idempotencyKey != "" {
		httpReq.Header.Set(headerIdempotencyKey, idempotencyKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, newTransportError(method+" "+path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, newTransportError(method+" "+path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, &GatewayError{
				StatusCode: http.StatusBadGateway,
				Message:    fmt.Sprintf("payment gateway error: invalid response body: %v", err),
				Cause:      err,
			}
		}
	}

	return json.RawMessage(respBody), nil
}

func parseAPIError(statusCode int, body []byte) *GatewayError {
	var errResp gw.ErrorResponse
	if err := json.Unmarshal(body, &errResp); err != nil {
		return newRawAPIError(statusCode, string(body))
	}

	status := "unknown"
	switch s := errResp.Status.(type) {
	case nil:
	case string:
		status = s
	default:
		status = fmt.Sprint(s)
	}

	detail := errResp.StatusDetail
	if detail == "" {
		detail = "unknown"
	}

	return newAPIError(statusCode, status, detail)
}

func (c *Client) expirationDate(after time.Duration) string {
	return c.now().In(c.location).Add(after).Format(expirationLayout)
}

func (c *Client) externalReference(method string) string {
	return fmt.Sprintf("ID-%s-%s", method, c.newID())
}

func cpf(number string) gw.Identification {
	return gw.Identification{Type: gw.IdentificationCPF, Number: number}
}

func descriptionOrDefault(description string) string {
	if strings.TrimSpace(description) == "" {
		return gw.DefaultDescription
	}
	return description
}
