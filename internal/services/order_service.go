package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"pharmacy/internal/apperrors"
	"pharmacy/internal/metrics"
	"pharmacy/internal/models"
	"pharmacy/internal/notifications"
	"pharmacy/internal/repositories"
)

// StockLedger reserves and releases product stock.
type StockLedger interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	Reserve(ctx context.Context, productID string, quantity int) (decimal.Decimal, error)
	Release(ctx context.Context, productID string, quantity int) error
}

// PrescriptionGate decides whether a prescription authorizes restricted purchases.
type PrescriptionGate interface {
	Authorize(ctx context.Context, prescriptionID string) error
}

// OrderItemRequest is one requested line of a new order.
type OrderItemRequest struct {
	ProductID string
	Quantity  int
}

// CreateOrderRequest carries the input of CreateOrder.
type CreateOrderRequest struct {
	UserID          string
	ShippingAddress string
	PaymentMethod   string
	Items           []OrderItemRequest
	PrescriptionID  *string
}

// OrderService drives order creation and the order status state machine.
type OrderService struct {
	orderRepo repositories.OrderRepository
	userRepo  repositories.UserRepository
	ledger    StockLedger
	gate      PrescriptionGate
	sink      notifications.Sink
	log       *zap.Logger
	metrics   *metrics.Metrics
}

// NewOrderService creates a new OrderService.
func NewOrderService(
	orderRepo repositories.OrderRepository,
	userRepo repositories.UserRepository,
	ledger StockLedger,
	gate PrescriptionGate,
	sink notifications.Sink,
	log *zap.Logger,
	m *metrics.Metrics,
) *OrderService {
	return &OrderService{
		orderRepo: orderRepo,
		userRepo:  userRepo,
		ledger:    ledger,
		gate:      gate,
		sink:      sink,
		log:       log,
		metrics:   m,
	}
}

// GetAllOrders retrieves all orders.
func (s *OrderService) GetAllOrders(ctx context.Context) ([]models.Order, error) {
	return s.orderRepo.GetAll(ctx)
}

// GetOrder retrieves a single order by its ID.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*models.Order, error) {
	return s.orderRepo.GetByID(ctx, id)
}

// GetUserOrders retrieves the orders of an existing user.
func (s *OrderService) GetUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.orderRepo.GetByUserID(ctx, userID)
}

type reservation struct {
	productID string
	quantity  int
}

// CreateOrder validates the request, reserves stock for every item in request order and persists
// a PENDING order. Either every item is reserved and the order is stored, or nothing is.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (order *models.Order, err error) {
	ctx, span := startSpan(ctx, "order.create",
		attribute.String("user.id", req.UserID), attribute.Int("items", len(req.Items)))
	defer endSpan(span, &err)

	if len(req.Items) == 0 {
		return nil, apperrors.ErrEmptyOrder
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("product %s: %w", item.ProductID, apperrors.ErrInvalidQuantity)
		}
	}

	user, err := s.userRepo.GetByID(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	hasPrescription := req.PrescriptionID != nil && *req.PrescriptionID != ""
	if hasPrescription {
		if err := s.gate.Authorize(ctx, *req.PrescriptionID); err != nil {
			return nil, err
		}
	}

	for _, item := range req.Items {
		product, err := s.ledger.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if product.PrescriptionRequired && !hasPrescription {
			return nil, fmt.Errorf("product %s: %w", product.Name, apperrors.ErrPrescriptionRequired)
		}
	}

	items := make([]models.OrderItem, 0, len(req.Items))
	reserved := make([]reservation, 0, len(req.Items))
	defer func() {
		if err != nil {
			s.rollback(ctx, reserved)
		}
	}()

	for _, item := range req.Items {
		price, err := s.ledger.Reserve(ctx, item.ProductID, item.Quantity)
		if err != nil {
			return nil, err
		}
		reserved = append(reserved, reservation{productID: item.ProductID, quantity: item.Quantity})
		items = append(items, models.NewOrderItem(item.ProductID, item.Quantity, price))
	}

	order = &models.Order{
		ID:              uuid.New().String(),
		UserID:          user.ID,
		Items:           items,
		Status:          models.OrderStatusPending,
		TotalAmount:     models.ItemsTotal(items),
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
	}
	if hasPrescription {
		id := *req.PrescriptionID
		order.PrescriptionID = &id
	}

	if err = s.orderRepo.Create(ctx, order); err != nil {
		return nil, err
	}

	s.metrics.OrderCreated()
	s.log.Info("order created",
		zap.String("order_id", order.ID),
		zap.String("user_id", order.UserID),
		zap.String("total", order.TotalAmount.StringFixed(2)),
	)
	s.sink.Notify(ctx, notifications.NewEvent(order.UserID, notifications.OrderUpdate,
		"Order Created",
		fmt.Sprintf("Your order #%s has been placed successfully.", order.ID),
		order.ID))
	return order, nil
}

// rollback releases reservations made by a failed CreateOrder call.
func (s *OrderService) rollback(ctx context.Context, reserved []reservation) {
	ctx = context.WithoutCancel(ctx)
	for _, r := range reserved {
		if err := s.ledger.Release(ctx, r.productID, r.quantity); err != nil {
			s.log.Error("failed to release reservation of aborted order",
				zap.String("product_id", r.productID),
				zap.Int("quantity", r.quantity),
				zap.Error(err),
			)
		}
	}
}

// UpdateOrderStatus moves the order to status, given by name in any case. Leaving DELIVERED or
// entering CANCELLED returns the order's items to stock.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id, status string) (order *models.Order, err error) {
	ctx, span := startSpan(ctx, "order.update_status",
		attribute.String("order.id", id), attribute.String("status", status))
	defer endSpan(span, &err)

	order, err = s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	next, err := models.ParseOrderStatus(status)
	if err != nil {
		return nil, fmt.Errorf("status %q: %w", status, err)
	}

	if err = s.transition(ctx, order, next); err != nil {
		return nil, err
	}

	s.sink.Notify(ctx, notifications.NewEvent(order.UserID, notifications.OrderUpdate,
		"Order Status Updated",
		fmt.Sprintf("Your order #%s status is now: %s", order.ID, order.Status),
		order.ID))
	return order, nil
}

// CancelOrder cancels any order that has not been delivered and returns its items to stock.
func (s *OrderService) CancelOrder(ctx context.Context, id string) (err error) {
	ctx, span := startSpan(ctx, "order.cancel", attribute.String("order.id", id))
	defer endSpan(span, &err)

	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if order.Status == models.OrderStatusDelivered {
		return fmt.Errorf("order %s: %w", order.ID, apperrors.ErrOrderAlreadyDelivered)
	}

	if err = s.transition(ctx, order, models.OrderStatusCancelled); err != nil {
		return err
	}

	s.sink.Notify(ctx, notifications.NewEvent(order.UserID, notifications.OrderUpdate,
		"Order Cancelled",
		fmt.Sprintf("Your order #%s has been cancelled.", order.ID),
		order.ID))
	return nil
}

// MarkPaid moves a PENDING or CONFIRMED order to PROCESSING after its payment settled. Any other
// status, including one reached concurrently, fails with ErrOrderNotPayable.
func (s *OrderService) MarkPaid(ctx context.Context, id string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !order.Status.Payable() {
		return nil, fmt.Errorf("order %s is %s: %w", order.ID, order.Status, apperrors.ErrOrderNotPayable)
	}
	err = s.transition(ctx, order, models.OrderStatusProcessing, models.PayableStatuses...)
	if errors.Is(err, apperrors.ErrOrderStatusChanged) {
		return nil, fmt.Errorf("order %s: %w", order.ID, apperrors.ErrOrderNotPayable)
	}
	if err != nil {
		return nil, err
	}
	return order, nil
}

// transition persists next as the order status, provided the stored status is still one of from
// (the status read into order when from is empty), then returns stock when required. Only the
// caller whose status write applied returns stock, and stock goes back at most once per order.
func (s *OrderService) transition(ctx context.Context, order *models.Order, next models.OrderStatus, from ...models.OrderStatus) error {
	prev := order.Status
	if len(from) == 0 {
		from = []models.OrderStatus{prev}
	}

	applied, err := s.orderRepo.UpdateStatusFrom(ctx, order.ID, from, next)
	if err != nil {
		return err
	}
	if !applied {
		return fmt.Errorf("order %s is no longer %s: %w", order.ID, prev, apperrors.ErrOrderStatusChanged)
	}

	returned := false
	if prev.ReturnsStock(next) {
		claimed, err := s.orderRepo.ClaimStockReturn(ctx, order.ID)
		if err != nil {
			s.restoreStatus(ctx, order.ID, next, prev)
			return err
		}
		if claimed {
			if err := s.returnStock(ctx, order); err != nil {
				s.resetStockReturn(ctx, order.ID)
				s.restoreStatus(ctx, order.ID, next, prev)
				return err
			}
			returned = true
		} else {
			s.log.Info("stock already returned for order", zap.String("order_id", order.ID))
		}
	}

	order.Status = next
	if returned {
		order.StockReturned = true
	}
	s.metrics.StatusChanged(string(prev), string(next))
	s.log.Info("order status changed",
		zap.String("order_id", order.ID),
		zap.String("from", string(prev)),
		zap.String("to", string(next)),
		zap.Bool("stock_returned", returned),
	)
	return nil
}

// returnStock releases every item of the order. On failure the items already released are
// reserved again so the ledger is left as it was.
func (s *OrderService) returnStock(ctx context.Context, order *models.Order) error {
	for i, item := range order.Items {
		if err := s.ledger.Release(ctx, item.ProductID, item.Quantity); err != nil {
			s.retakeStock(ctx, order, i)
			return fmt.Errorf("failed to return stock for order %s: %w", order.ID, err)
		}
	}
	return nil
}

// retakeStock reserves again the first n items of the order after an aborted stock return.
func (s *OrderService) retakeStock(ctx context.Context, order *models.Order, n int) {
	ctx = context.WithoutCancel(ctx)
	for _, item := range order.Items[:n] {
		if _, err := s.ledger.Reserve(ctx, item.ProductID, item.Quantity); err != nil {
			s.log.Error("failed to undo stock return",
				zap.String("order_id", order.ID),
				zap.String("product_id", item.ProductID),
				zap.Error(err),
			)
		}
	}
}

// restoreStatus puts back prev after a status change whose stock return failed.
func (s *OrderService) restoreStatus(ctx context.Context, orderID string, next, prev models.OrderStatus) {
	applied, err := s.orderRepo.UpdateStatusFrom(context.WithoutCancel(ctx), orderID, []models.OrderStatus{next}, prev)
	if err != nil || !applied {
		s.log.Error("failed to restore order status",
			zap.String("order_id", orderID),
			zap.String("status", string(prev)),
			zap.Error(err),
		)
	}
}

func (s *OrderService) resetStockReturn(ctx context.Context, orderID string) {
	if err := s.orderRepo.ResetStockReturn(context.WithoutCancel(ctx), orderID); err != nil {
		s.log.Error("failed to reset stock return flag", zap.String("order_id", orderID), zap.Error(err))
	}
}
