package repositories

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pharmacy/internal/apperrors"
	"pharmacy/internal/models"
)

// MemoryOrderRepository is an in-memory implementation of OrderRepository.
type MemoryOrderRepository struct {
	orders map[string]models.Order
	mu     sync.RWMutex
}

// NewMemoryOrderRepository creates a new instance of MemoryOrderRepository.
func NewMemoryOrderRepository() *MemoryOrderRepository {
	return &MemoryOrderRepository{
		orders: make(map[string]models.Order),
	}
}

// cloneOrder copies the items slice so callers never share it with the store.
func cloneOrder(o models.Order) models.Order {
	items := make([]models.OrderItem, len(o.Items))
	copy(items, o.Items)
	o.Items = items
	return o
}

func sortByCreated(orders []models.Order) {
	sort.SliceStable(orders, func(i, j int) bool { return orders[i].CreatedAt.Before(orders[j].CreatedAt) })
}

// GetAll returns all orders, oldest first.
func (r *MemoryOrderRepository) GetAll(_ context.Context) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	orderList := make([]models.Order, 0, len(r.orders))
	for _, order := range r.orders {
		orderList = append(orderList, cloneOrder(order))
	}
	sortByCreated(orderList)
	return orderList, nil
}

// GetByID returns an order by its ID.
func (r *MemoryOrderRepository) GetByID(_ context.Context, id string) (*models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	order, ok := r.orders[id]
	if !ok {
		return nil, fmt.Errorf("order with ID %s: %w", id, apperrors.ErrOrderNotFound)
	}
	order = cloneOrder(order)
	return &order, nil
}

// GetByUserID returns the orders placed by a user, oldest first.
func (r *MemoryOrderRepository) GetByUserID(_ context.Context, userID string) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var userOrders []models.Order
	for _, order := range r.orders {
		if order.UserID == userID {
			userOrders = append(userOrders, cloneOrder(order))
		}
	}
	sortByCreated(userOrders)
	return userOrders, nil
}

// Create adds a new order.
func (r *MemoryOrderRepository) Create(_ context.Context, order *models.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID == "" {
		order.ID = uuid.New().String()
	}
	for i := range order.Items {
		order.Items[i].ID = uint(i + 1)
		order.Items[i].OrderID = order.ID
		order.Items[i].Position = i
	}
	now := time.Now()
	order.CreatedAt = now
	order.UpdatedAt = now
	r.orders[order.ID] = cloneOrder(*order)
	return nil
}

// UpdateStatusFrom sets the status of an existing order if it is currently one of from.
func (r *MemoryOrderRepository) UpdateStatusFrom(_ context.Context, id string, from []models.OrderStatus, to models.OrderStatus) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return false, fmt.Errorf("order with ID %s not found for status update: %w", id, apperrors.ErrOrderNotFound)
	}
	if !slices.Contains(from, order.Status) {
		return false, nil
	}
	order.Status = to
	order.UpdatedAt = time.Now()
	r.orders[id] = order
	return true, nil
}

// ClaimStockReturn sets the stock-returned flag if it is not already set.
func (r *MemoryOrderRepository) ClaimStockReturn(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return false, fmt.Errorf("order with ID %s: %w", id, apperrors.ErrOrderNotFound)
	}
	if order.StockReturned {
		return false, nil
	}
	order.StockReturned = true
	r.orders[id] = order
	return true, nil
}

// ResetStockReturn clears the stock-returned flag.
func (r *MemoryOrderRepository) ResetStockReturn(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	order, ok := r.orders[id]
	if !ok {
		return fmt.Errorf("order with ID %s: %w", id, apperrors.ErrOrderNotFound)
	}
	order.StockReturned = false
	r.orders[id] = order
	return nil
}
