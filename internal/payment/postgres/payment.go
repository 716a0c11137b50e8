package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/frahmantamala/checkout-payments/internal/core/datamodel/payment"
	paymentpkg "github.com/frahmantamala/checkout-payments/internal/payment"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) paymentpkg.RepositoryAPI {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(ctx context.Context, p *payment.Payment) (*payment.Payment, bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "transaction_id"}},
			DoNothing: true,
		}).
		Create(p)
	if result.Error != nil {
		return nil, false, result.Error
	}
	if result.RowsAffected > 0 {
		return p, true, nil
	}

	existing, err := r.GetByTransactionID(ctx, p.TransactionID)
	if err != nil {
		return nil, false, fmt.Errorf("insert skipped but existing payment unreadable: %w", err)
	}
	return existing, false, nil
}

func (r *PaymentRepository) GetByID(ctx context.Context, id int64) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).First(&p, id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PaymentRepository) GetByTransactionID(ctx context.Context, transactionID string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.WithContext(ctx).Where("transaction_id = ?", transactionID).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (r *PaymentRepository) List(ctx context.Context) ([]*payment.Payment, error) {
	var payments []*payment.Payment
	err := r.db.WithContext(ctx).Order("id ASC").Find(&payments).Error
	return payments, err
}

func (r *PaymentRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&payment.Payment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return paymentpkg.ErrRecordNotFound
	}
	return nil
}

// ReconcileStatus runs resolve while holding a FOR UPDATE lock on the row, so
// concurrent notifications for one transaction apply one after the other.
func (r *PaymentRepository) ReconcileStatus(ctx context.Context, transactionID string, resolve paymentpkg.StatusResolver) (*paymentpkg.StatusUpdate, error) {
	var update *paymentpkg.StatusUpdate

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p payment.Payment
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("transaction_id = ?", transactionID).
			First(&p).Error
		if err != nil {
			return translate(err)
		}

		status, err := resolve(ctx, &p)
		if err != nil {
			return err
		}
		if !paymentpkg.IsValidStatus(status) {
			return fmt.Errorf("resolved invalid payment status %q", status)
		}

		previous := p.PaymentStatus
		update = &paymentpkg.StatusUpdate{Payment: &p, PreviousStatus: previous}
		if status == previous {
			return nil
		}

		now := time.Now()
		err = tx.Model(&p).Updates(map[string]interface{}{
			"payment_status": status,
			"updated_at":     now,
		}).Error
		if err != nil {
			return err
		}

		p.PaymentStatus = status
		p.UpdatedAt = now
		update.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return update, nil
}

func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return paymentpkg.ErrRecordNotFound
	}
	return err
}
