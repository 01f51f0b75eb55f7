package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"pharmacy/internal/apperrors"
	"pharmacy/internal/models"
)

// MemoryProductRepository is an in-memory implementation of ProductRepository.
type MemoryProductRepository struct {
	products map[string]models.Product
	mu       sync.RWMutex
}

// NewMemoryProductRepository creates a new instance of MemoryProductRepository.
func NewMemoryProductRepository() *MemoryProductRepository {
	return &MemoryProductRepository{
		products: make(map[string]models.Product),
	}
}

// GetAll returns all products sorted by name.
func (r *MemoryProductRepository) GetAll(_ context.Context) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	productList := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		productList = append(productList, p)
	}
	sort.Slice(productList, func(i, j int) bool { return productList[i].Name < productList[j].Name })
	return productList, nil
}

// GetByID returns a product by its ID.
func (r *MemoryProductRepository) GetByID(_ context.Context, id string) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	product, ok := r.products[id]
	if !ok {
		return nil, fmt.Errorf("product with ID %s: %w", id, apperrors.ErrProductNotFound)
	}
	return &product, nil
}

// ListLowStock returns products at or below their reorder level, emptiest first.
func (r *MemoryProductRepository) ListLowStock(_ context.Context) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var low []models.Product
	for _, p := range r.products {
		if p.StockQuantity <= p.ReorderLevel {
			low = append(low, p)
		}
	}
	sort.Slice(low, func(i, j int) bool {
		if low[i].StockQuantity != low[j].StockQuantity {
			return low[i].StockQuantity < low[j].StockQuantity
		}
		return low[i].Name < low[j].Name
	})
	return low, nil
}

// Create adds a new product.
func (r *MemoryProductRepository) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if product.ID == "" {
		product.ID = uuid.New().String()
	}
	if product.StockQuantity < 0 {
		return fmt.Errorf("product %s: negative stock: %w", product.Name, apperrors.ErrInvalidQuantity)
	}
	now := time.Now()
	product.CreatedAt = now
	product.UpdatedAt = now
	r.products[product.ID] = *product
	return nil
}

// Update modifies the catalog fields of an existing product, keeping its stock.
func (r *MemoryProductRepository) Update(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.products[product.ID]
	if !ok {
		return fmt.Errorf("product with ID %s not found for update: %w", product.ID, apperrors.ErrProductNotFound)
	}
	existing.Name = product.Name
	existing.Description = product.Description
	existing.Price = product.Price
	existing.ReorderLevel = product.ReorderLevel
	existing.PrescriptionRequired = product.PrescriptionRequired
	existing.UpdatedAt = time.Now()
	r.products[product.ID] = existing
	return nil
}

// Reserve checks and decrements stock under the write lock.
func (r *MemoryProductRepository) Reserve(_ context.Context, id string, quantity int) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return decimal.Zero, fmt.Errorf("product with ID %s: %w", id, apperrors.ErrProductNotFound)
	}
	if product.StockQuantity < quantity {
		return decimal.Zero, fmt.Errorf("product %s (requested: %d, available: %d): %w",
			product.Name, quantity, product.StockQuantity, apperrors.ErrInsufficientStock)
	}
	product.StockQuantity -= quantity
	product.UpdatedAt = time.Now()
	r.products[id] = product
	return product.Price, nil
}

// Release returns quantity units to stock.
func (r *MemoryProductRepository) Release(_ context.Context, id string, quantity int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	product, ok := r.products[id]
	if !ok {
		return fmt.Errorf("product with ID %s not found for release: %w", id, apperrors.ErrProductNotFound)
	}
	product.StockQuantity += quantity
	product.UpdatedAt = time.Now()
	r.products[id] = product
	return nil
}
