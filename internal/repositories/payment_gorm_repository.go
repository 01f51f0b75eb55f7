package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pharmacy/internal/apperrors"
	"pharmacy/internal/models"
)

// GORMPaymentRepository is a GORM implementation of PaymentRepository.
type GORMPaymentRepository struct {
	db *gorm.DB
}

// NewGORMPaymentRepository creates a new instance of GORMPaymentRepository.
func NewGORMPaymentRepository(db *gorm.DB) *GORMPaymentRepository {
	return &GORMPaymentRepository{db: db}
}

// Create stores a new payment. The active payment index rejects a second active payment for
// the same order with ErrPaymentAlreadyActive.
func (r *GORMPaymentRepository) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	err := r.db.WithContext(ctx).Create(payment).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) && payment.Status.IsActive() {
		if active, countErr := r.hasActive(ctx, payment.OrderID); countErr == nil && active {
			return fmt.Errorf("order %s: %w", payment.OrderID, apperrors.ErrPaymentAlreadyActive)
		}
	}
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

func (r *GORMPaymentRepository) hasActive(ctx context.Context, orderID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("order_id = ? AND status IN ?", orderID, models.ActivePaymentStatuses).
		Count(&count).Error
	return count > 0, err
}

// GetByID retrieves a payment by its ID.
func (r *GORMPaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).First(&payment, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("payment with ID %s: %w", id, apperrors.ErrPaymentNotFound)
		}
		return nil, fmt.Errorf("failed to get payment by ID %s: %w", id, err)
	}
	return &payment, nil
}

// GetByUserID lists a user's payments, oldest first.
func (r *GORMPaymentRepository) GetByUserID(ctx context.Context, userID string) ([]models.Payment, error) {
	var payments []models.Payment
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at").Find(&payments).Error; err != nil {
		return nil, fmt.Errorf("failed to get payments for user %s: %w", userID, err)
	}
	return payments, nil
}

// TransitionStatus updates the status only when the stored status equals from.
func (r *GORMPaymentRepository) TransitionStatus(ctx context.Context, id string, from, to models.PaymentStatus) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("id = ? AND status = ?", id, from).
		Updates(map[string]interface{}{"status": to, "updated_at": time.Now()})
	if res.Error != nil {
		return false, fmt.Errorf("failed to update payment %s: %w", id, res.Error)
	}
	return res.RowsAffected == 1, nil
}
