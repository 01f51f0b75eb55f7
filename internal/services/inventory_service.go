package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"pharmacy/internal/apperrors"
	"pharmacy/internal/metrics"
	"pharmacy/internal/models"
	"pharmacy/internal/repositories"
)

// Stock operations accepted by UpdateStock.
const (
	StockAdd      = "ADD"
	StockSubtract = "SUBTRACT"
)

// InventoryService is the inventory ledger. It is the only component that changes product stock.
type InventoryService struct {
	repo    repositories.ProductRepository
	log     *zap.Logger
	metrics *metrics.Metrics
}

// NewInventoryService creates a new InventoryService.
func NewInventoryService(repo repositories.ProductRepository, log *zap.Logger, m *metrics.Metrics) *InventoryService {
	return &InventoryService{
		repo:    repo,
		log:     log,
		metrics: m,
	}
}

// ListProducts retrieves all products.
func (s *InventoryService) ListProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetAll(ctx)
}

// GetProduct retrieves a single product by its ID.
func (s *InventoryService) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// LowStockProducts lists products at or below their reorder level, including those out of stock.
func (s *InventoryService) LowStockProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.ListLowStock(ctx)
}

// Reserve takes quantity units out of stock and returns the unit price at reservation time.
func (s *InventoryService) Reserve(ctx context.Context, productID string, quantity int) (price decimal.Decimal, err error) {
	ctx, span := startSpan(ctx, "inventory.reserve",
		attribute.String("product.id", productID), attribute.Int("quantity", quantity))
	defer endSpan(span, &err)

	if quantity <= 0 {
		return decimal.Zero, apperrors.ErrInvalidQuantity
	}
	price, err = s.repo.Reserve(ctx, productID, quantity)
	if err != nil {
		if errors.Is(err, apperrors.ErrInsufficientStock) {
			s.metrics.ReservationFailed()
			s.log.Info("stock reservation rejected", zap.String("product_id", productID), zap.Int("quantity", quantity))
		}
		return decimal.Zero, err
	}
	return price, nil
}

// Release puts quantity units back into stock.
func (s *InventoryService) Release(ctx context.Context, productID string, quantity int) (err error) {
	ctx, span := startSpan(ctx, "inventory.release",
		attribute.String("product.id", productID), attribute.Int("quantity", quantity))
	defer endSpan(span, &err)

	if quantity <= 0 {
		return apperrors.ErrInvalidQuantity
	}
	if err = s.repo.Release(ctx, productID, quantity); err != nil {
		return err
	}
	s.metrics.UnitsReleased(quantity)
	return nil
}

// UpdateStock applies a manual ADD or SUBTRACT adjustment. The operation name is case-insensitive.
func (s *InventoryService) UpdateStock(ctx context.Context, productID string, quantity int, operation string) (*models.Product, error) {
	if quantity <= 0 {
		return nil, apperrors.ErrInvalidQuantity
	}

	var err error
	switch strings.ToUpper(strings.TrimSpace(operation)) {
	case StockAdd:
		err = s.Release(ctx, productID, quantity)
	case StockSubtract:
		_, err = s.Reserve(ctx, productID, quantity)
	default:
		return nil, fmt.Errorf("operation %q: %w", operation, apperrors.ErrInvalidStockOperation)
	}
	if err != nil {
		return nil, err
	}

	product, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	s.log.Info("stock adjusted",
		zap.String("product_id", productID),
		zap.String("operation", strings.ToUpper(operation)),
		zap.Int("quantity", quantity),
		zap.Int("stock", product.StockQuantity),
	)
	return product, nil
}
