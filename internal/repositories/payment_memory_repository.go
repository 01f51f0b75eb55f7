package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pharmacy/internal/apperrors"
	"pharmacy/internal/models"
)

// MemoryPaymentRepository is an in-memory implementation of PaymentRepository.
type MemoryPaymentRepository struct {
	payments map[string]models.Payment
	mu       sync.RWMutex
}

// NewMemoryPaymentRepository creates a new instance of MemoryPaymentRepository.
func NewMemoryPaymentRepository() *MemoryPaymentRepository {
	return &MemoryPaymentRepository{payments: make(map[string]models.Payment)}
}

// Create stores a new payment. An order holds at most one active payment.
func (r *MemoryPaymentRepository) Create(_ context.Context, payment *models.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if payment.ID == "" {
		payment.ID = uuid.New().String()
	}
	for _, p := range r.payments {
		if p.TransactionID == payment.TransactionID {
			return fmt.Errorf("failed to create payment: duplicate transaction id %s", payment.TransactionID)
		}
		if p.OrderID == payment.OrderID && p.Status.IsActive() && payment.Status.IsActive() {
			return fmt.Errorf("order %s has payment %s (%s): %w", p.OrderID, p.ID, p.Status, apperrors.ErrPaymentAlreadyActive)
		}
	}
	now := time.Now()
	payment.CreatedAt = now
	payment.UpdatedAt = now
	r.payments[payment.ID] = *payment
	return nil
}

// GetByID retrieves a payment by its ID.
func (r *MemoryPaymentRepository) GetByID(_ context.Context, id string) (*models.Payment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	payment, ok := r.payments[id]
	if !ok {
		return nil, fmt.Errorf("payment with ID %s: %w", id, apperrors.ErrPaymentNotFound)
	}
	return &payment, nil
}

func (r *MemoryPaymentRepository) filter(keep func(models.Payment) bool) []models.Payment {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Payment
	for _, p := range r.payments {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// GetByUserID lists a user's payments, oldest first.
func (r *MemoryPaymentRepository) GetByUserID(_ context.Context, userID string) ([]models.Payment, error) {
	return r.filter(func(p models.Payment) bool { return p.UserID == userID }), nil
}

// TransitionStatus updates the status only when the stored status equals from.
func (r *MemoryPaymentRepository) TransitionStatus(_ context.Context, id string, from, to models.PaymentStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	payment, ok := r.payments[id]
	if !ok {
		return false, fmt.Errorf("payment with ID %s: %w", id, apperrors.ErrPaymentNotFound)
	}
	if payment.Status != from {
		return false, nil
	}
	payment.Status = to
	payment.UpdatedAt = time.Now()
	r.payments[id] = payment
	return true, nil
}
