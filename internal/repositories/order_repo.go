package repositories

import (
	"context"

	"pharmacy/internal/models"
)

// OrderRepository defines the interface for order data access.
// Orders are never deleted; cancellation is a status change.
type OrderRepository interface {
	GetAll(ctx context.Context) ([]models.Order, error)
	GetByID(ctx context.Context, id string) (*models.Order, error)
	GetByUserID(ctx context.Context, userID string) ([]models.Order, error)
	// Create persists the order together with its items, keeping item order.
	Create(ctx context.Context, order *models.Order) error
	// UpdateStatusFrom sets the status only while the current status is one of from and reports
	// whether it did. A missing order is an error.
	UpdateStatusFrom(ctx context.Context, id string, from []models.OrderStatus, to models.OrderStatus) (bool, error)
	// ClaimStockReturn flips the stock-returned flag and reports whether this caller flipped it.
	ClaimStockReturn(ctx context.Context, id string) (bool, error)
	// ResetStockReturn clears the flag after a failed return so it can be retried.
	ResetStockReturn(ctx context.Context, id string) error
}
