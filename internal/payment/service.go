package payment

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"

	errors "github.com/frahmantamala/checkout-payments/internal"
	paymentDatamodel "github.com/frahmantamala/checkout-payments/internal/core/datamodel/payment"
	gw "github.com/frahmantamala/checkout-payments/internal/core/datamodel/paymentgateway"
	"github.com/frahmantamala/checkout-payments/internal/core/events"
	"github.com/frahmantamala/checkout-payments/internal/paymentgateway"
	"github.com/shopspring/decimal"
)

// ErrRecordNotFound is returned by repositories when no row matches.
var ErrRecordNotFound = stderrors.New("payment record not found")

// GatewayAPI is the subset of the payment gateway client the service needs.
type GatewayAPI interface {
	PayWithPix(ctx context.Context, req paymentgateway.PixRequest) (*gw.PaymentResponse, error)
	PayWithBoleto(ctx context.Context, req paymentgateway.BoletoRequest) (*gw.PaymentResponse, error)
	PayWithCard(ctx context.Context, req paymentgateway.CardRequest) (*gw.PaymentResponse, error)
	GetPaymentInfo(ctx context.Context, transactionID string) (*gw.PaymentResponse, error)
}

// StatusResolver computes the new status of a locked payment row.
type StatusResolver func(ctx context.Context, current *paymentDatamodel.Payment) (string, error)

type StatusUpdate struct {
	Payment        *paymentDatamodel.Payment
	PreviousStatus string
	Changed        bool
}

type RepositoryAPI interface {
	// Create inserts p unless a row with the same transaction id exists, in
	// which case that row is returned and created is false.
	Create(ctx context.Context, p *paymentDatamodel.Payment) (stored *paymentDatamodel.Payment, created bool, err error)
	GetByID(ctx context.Context, id int64) (*paymentDatamodel.Payment, error)
	GetByTransactionID(ctx context.Context, transactionID string) (*paymentDatamodel.Payment, error)
	List(ctx context.Context) ([]*paymentDatamodel.Payment, error)
	Delete(ctx context.Context, id int64) error
	// ReconcileStatus locks the row for transactionID, asks resolve for the
	// new status and writes it only when it differs.
	ReconcileStatus(ctx context.Context, transactionID string, resolve StatusResolver) (*StatusUpdate, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type ServiceAPI interface {
	CheckoutPix(ctx context.Context, dto *PixPaymentDTO, idempotencyKey string) (*CheckoutResult, error)
	CheckoutBoleto(ctx context.Context, dto *BoletoPaymentDTO, idempotencyKey string) (*CheckoutResult, error)
	CheckoutCard(ctx context.Context, dto *CardPaymentDTO, idempotencyKey string) (*CheckoutResult, error)
	HandleNotification(ctx context.Context, dto *NotificationDTO) (*NotificationResult, error)
	ReconcilePayment(ctx context.Context, transactionID string) (*NotificationResult, error)
	ListPayments(ctx context.Context) ([]*Payment, error)
	GetPayment(ctx context.Context, id int64) (*Payment, error)
	DeletePayment(ctx context.Context, id int64) error
}

type Service struct {
	repo      RepositoryAPI
	gateway   GatewayAPI
	publisher EventPublisher
	logger    *slog.Logger
}

func NewService(repo RepositoryAPI, gateway GatewayAPI, publisher EventPublisher, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:      repo,
		gateway:   gateway,
		publisher: publisher,
		logger:    logger,
	}
}

func (s *Service) CheckoutPix(ctx context.Context, dto *PixPaymentDTO, idempotencyKey string) (*CheckoutResult, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("pix checkout validation failed", "error", err)
		return nil, err
	}

	resp, err := s.gateway.PayWithPix(ctx, paymentgateway.PixRequest{
		Amount:         dto.TransactionAmount,
		PayerEmail:     dto.PayerEmail,
		PayerCPF:       dto.PayerCPF,
		Description:    dto.Description,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, s.gatewayError("pix checkout", err)
	}

	return s.record(ctx, MethodPix, StatusPending, dto.TransactionAmount, resp)
}

func (s *Service) CheckoutBoleto(ctx context.Context, dto *BoletoPaymentDTO, idempotencyKey string) (*CheckoutResult, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("boleto checkout validation failed", "error", err)
		return nil, err
	}

	resp, err := s.gateway.PayWithBoleto(ctx, paymentgateway.BoletoRequest{
		Amount:         dto.TransactionAmount,
		PayerEmail:     dto.PayerEmail,
		PayerFirstName: dto.PayerFirstName,
		PayerLastName:  dto.PayerLastName,
		PayerCPF:       dto.PayerCPF,
		Address:        dto.Address(),
		Description:    dto.Description,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, s.gatewayError("boleto checkout", err)
	}

	return s.record(ctx, MethodBoleto, StatusPending, dto.TransactionAmount, resp)
}

// CheckoutCard charges the card and stores the immediate outcome.
func (s *Service) CheckoutCard(ctx context.Context, dto *CardPaymentDTO, idempotencyKey string) (*CheckoutResult, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("card checkout validation failed", "error", err)
		return nil, err
	}

	resp, err := s.gateway.PayWithCard(ctx, paymentgateway.CardRequest{
		Amount:         dto.TransactionAmount,
		PayerEmail:     dto.PayerEmail,
		PayerCPF:       dto.PayerCPF,
		Card:           dto.CardData(),
		Installments:   dto.Installments,
		Description:    dto.Description,
		IdempotencyKey: idempotencyKey,
	})
	if err != nil {
		return nil, s.gatewayError("card checkout", err)
	}

	return s.record(ctx, MethodCreditCard, MapCardStatus(resp.Status), dto.TransactionAmount, resp)
}

func (s *Service) record(ctx context.Context, method, status string, amount decimal.Decimal, resp *gw.PaymentResponse) (*CheckoutResult, error) {
	transactionID := resp.ID.String()
	if transactionID == "" {
		s.logger.Error("gateway response without payment id", "payment_method", method)
		return nil, errors.NewExternalError("payment gateway returned no payment id", nil)
	}
	if err := resp.ID.Validate(); err != nil {
		s.logger.Error("gateway response with invalid payment id", "payment_method", method, "error", err)
		return nil, errors.NewExternalError("payment gateway returned an invalid payment id", err)
	}

	entity := NewPayment(method, transactionID, status, amount)
	stored, created, err := s.repo.Create(ctx, ToDataModel(entity))
	if err != nil {
		s.logger.Error("failed to store payment",
			"error", err,
			"transaction_id", transactionID,
			"payment_method", method)
		return nil, errors.NewInternalError("failed to store payment", err)
	}

	p := FromDataModel(stored)
	if created {
		s.logger.Info("payment stored",
			"payment_id", p.ID,
			"transaction_id", p.TransactionID,
			"payment_method", p.PaymentMethod,
			"payment_status", p.PaymentStatus)
		s.publish(ctx, events.NewPaymentCreatedEvent(p.ID, p.TransactionID, p.PaymentMethod, p.PaymentStatus, p.Amount.StringFixed(2)))
	} else {
		s.logger.Info("payment already stored for transaction",
			"payment_id", p.ID,
			"transaction_id", p.TransactionID)
	}

	return &CheckoutResult{Payment: p, Gateway: resp}, nil
}

// HandleNotification applies a provider webhook. Anything other than a
// payment update is acknowledged without side effects.
func (s *Service) HandleNotification(ctx context.Context, dto *NotificationDTO) (*NotificationResult, error) {
	if err := dto.Validate(); err != nil {
		s.logger.Warn("invalid notification", "error", err)
		return nil, err
	}

	if !dto.IsPaymentUpdate() {
		s.logger.Info("notification ignored", "action", dto.Action, "type", dto.Type)
		return &NotificationResult{Message: NotificationMessageIgnored}, nil
	}

	return s.ReconcilePayment(ctx, dto.TransactionID())
}

// ReconcilePayment re-reads the provider status of transactionID and stores
// the mapped local status. The provider call happens under the row lock.
func (s *Service) ReconcilePayment(ctx context.Context, transactionID string) (*NotificationResult, error) {
	if transactionID == "" {
		return nil, errors.NewValidationFieldError("transaction_id", "transaction_id is required", errors.ErrCodeInvalidNotification)
	}

	var info *gw.PaymentResponse
	update, err := s.repo.ReconcileStatus(ctx, transactionID, func(ctx context.Context, current *paymentDatamodel.Payment) (string, error) {
		resp, err := s.gateway.GetPaymentInfo(ctx, transactionID)
		if err != nil {
			return "", err
		}
		info = resp
		return MapProviderStatus(resp.Status, resp.StatusDetail), nil
	})
	if err != nil {
		if stderrors.Is(err, ErrRecordNotFound) {
			s.logger.Warn("notification for unknown payment", "transaction_id", transactionID)
			return nil, errors.ErrPaymentNotFound
		}
		var gwErr *paymentgateway.GatewayError
		if stderrors.As(err, &gwErr) {
			return nil, s.gatewayError("payment status fetch", err)
		}
		s.logger.Error("failed to reconcile payment", "error", err, "transaction_id", transactionID)
		return nil, errors.NewInternalError("failed to update payment", err)
	}

	p := update.Payment
	if update.Changed {
		s.logger.Info("payment status changed",
			"payment_id", p.ID,
			"transaction_id", transactionID,
			"previous_status", update.PreviousStatus,
			"payment_status", p.PaymentStatus,
			"provider_status", info.Status,
			"provider_status_detail", info.StatusDetail)
		s.publish(ctx, events.NewPaymentStatusChangedEvent(p.ID, transactionID, update.PreviousStatus, p.PaymentStatus, info.Status, info.StatusDetail))
	} else {
		s.logger.Debug("payment status unchanged",
			"payment_id", p.ID,
			"transaction_id", transactionID,
			"payment_status", p.PaymentStatus)
	}

	return &NotificationResult{
		Message:       NotificationMessageUpdated,
		TransactionID: transactionID,
		Status:        p.PaymentStatus,
		Updated:       update.Changed,
	}, nil
}

func (s *Service) ListPayments(ctx context.Context) ([]*Payment, error) {
	payments, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("failed to list payments", "error", err)
		return nil, errors.NewInternalError("failed to list payments", err)
	}
	return FromDataModelSlice(payments), nil
}

func (s *Service) GetPayment(ctx context.Context, id int64) (*Payment, error) {
	if id <= 0 {
		return nil, errors.NewValidationError("invalid payment ID", errors.ErrCodeInvalidPaymentID)
	}

	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if stderrors.Is(err, ErrRecordNotFound) {
			return nil, errors.ErrPaymentNotFound
		}
		s.logger.Error("failed to get payment", "error", err, "payment_id", id)
		return nil, errors.NewInternalError("failed to get payment", err)
	}
	return FromDataModel(p), nil
}

func (s *Service) DeletePayment(ctx context.Context, id int64) error {
	if id <= 0 {
		return errors.NewValidationError("invalid payment ID", errors.ErrCodeInvalidPaymentID)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if stderrors.Is(err, ErrRecordNotFound) {
			return errors.ErrPaymentNotFound
		}
		s.logger.Error("failed to delete payment", "error", err, "payment_id", id)
		return errors.NewInternalError("failed to delete payment", err)
	}

	s.logger.Info("payment deleted",
		"payment_id", id,
		"admin", errors.AdminSubjectFromContext(ctx))
	return nil
}

func (s *Service) gatewayError(op string, err error) error {
	s.logger.Error("payment gateway call failed", "operation", op, "error", err)

	var gwErr *paymentgateway.GatewayError
	if stderrors.As(err, &gwErr) {
		return errors.NewExternalError(gwErr.Message, err)
	}
	return errors.NewExternalError(fmt.Sprintf("%s failed", op), err)
}

func (s *Service) publish(ctx context.Context, event events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish event",
			"event_type", event.EventType(),
			"event_id", event.EventID(),
			"error", err)
	}
}
