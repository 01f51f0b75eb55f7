package repositories

import (
	"context"

	"pharmacy/internal/models"
)

// PaymentRepository defines the interface for payment data access.
type PaymentRepository interface {
	// Create stores a new payment and fails with ErrPaymentAlreadyActive when the order already
	// has an active payment.
	Create(ctx context.Context, payment *models.Payment) error
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	GetByUserID(ctx context.Context, userID string) ([]models.Payment, error)
	// TransitionStatus moves the payment from one status to another and reports whether
	// the stored status matched from.
	TransitionStatus(ctx context.Context, id string, from, to models.PaymentStatus) (bool, error)
}
