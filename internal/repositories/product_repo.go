package repositories

import (
	"context"

	"github.com/shopspring/decimal"

	"pharmacy/internal/models"
)

// ProductRepository defines the interface for product data access.
//
// Reserve and Release are the only operations allowed to change stock. Reserve must decrement
// atomically with a floor check so that concurrent reservations never drive stock below zero.
type ProductRepository interface {
	GetAll(ctx context.Context) ([]models.Product, error)
	GetByID(ctx context.Context, id string) (*models.Product, error)
	ListLowStock(ctx context.Context) ([]models.Product, error)
	Create(ctx context.Context, product *models.Product) error
	Update(ctx context.Context, product *models.Product) error
	// Reserve decrements stock by quantity and returns the unit price at reservation time.
	Reserve(ctx context.Context, id string, quantity int) (decimal.Decimal, error)
	// Release increments stock by quantity.
	Release(ctx context.Context, id string, quantity int) error
}
