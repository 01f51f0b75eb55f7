package handlers

import (
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"pharmacy/internal/services"
)

type orderItemRequest struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}

type createOrderRequest struct {
	UserID          string             `json:"user_id" validate:"required"`
	ShippingAddress string             `json:"shipping_address"`
	PaymentMethod   string             `json:"payment_method"`
	PrescriptionID  *string            `json:"prescription_id"`
	Items           []orderItemRequest `json:"items" validate:"dive"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  *services.OrderService
	log      *zap.Logger
	validate *validator.Validate
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(service *services.OrderService, log *zap.Logger) *OrderHandler {
	return &OrderHandler{
		service:  service,
		log:      log,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the order routes. staff guards the routes reserved for pharmacists and admins.
func (h *OrderHandler) RegisterRoutes(router fiber.Router, staff fiber.Handler) {
	orderRoutes := router.Group("/orders")
	orderRoutes.Get("/", staff, h.HandleGetOrders)
	orderRoutes.Post("/", h.HandleCreateOrder)
	orderRoutes.Get("/:id", h.HandleGetOrderByID)
	orderRoutes.Patch("/:id/status", staff, h.HandleUpdateOrderStatus)
	orderRoutes.Delete("/:id", h.HandleCancelOrder)

	router.Get("/users/:userId/orders", h.HandleGetUserOrders)
}

// HandleGetOrders retrieves all orders.
func (h *OrderHandler) HandleGetOrders(c *fiber.Ctx) error {
	orders, err := h.service.GetAllOrders(c.UserContext())
	if err != nil {
		return respondError(c, h.log, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleGetOrderByID retrieves a single order by its ID.
func (h *OrderHandler) HandleGetOrderByID(c *fiber.Ctx) error {
	order, err := h.service.GetOrder(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, "Could not retrieve order", err)
	}
	if !canAccess(c, order.UserID) {
		return forbidden(c)
	}
	return c.JSON(order)
}

// HandleGetUserOrders retrieves the orders placed by one user.
func (h *OrderHandler) HandleGetUserOrders(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if !canAccess(c, userID) {
		return forbidden(c)
	}
	orders, err := h.service.GetUserOrders(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, "Could not retrieve orders", err)
	}
	return c.JSON(orders)
}

// HandleCreateOrder creates a new order.
func (h *OrderHandler) HandleCreateOrder(c *fiber.Ctx) error {
	var req createOrderRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	req.UserID = actingUser(c, req.UserID)
	if ok, err := check(c, h.validate, &req); !ok {
		return err
	}

	items := make([]services.OrderItemRequest, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, services.OrderItemRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	order, err := h.service.CreateOrder(c.UserContext(), services.CreateOrderRequest{
		UserID:          req.UserID,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Items:           items,
		PrescriptionID:  req.PrescriptionID,
	})
	if err != nil {
		return respondError(c, h.log, "Could not create order", err)
	}
	return c.Status(fiber.StatusCreated).JSON(order)
}

// HandleUpdateOrderStatus updates the status of an existing order.
func (h *OrderHandler) HandleUpdateOrderStatus(c *fiber.Ctx) error {
	var req updateStatusRequest
	if ok, err := decode(c, h.validate, &req); !ok {
		return err
	}

	order, err := h.service.UpdateOrderStatus(c.UserContext(), c.Params("id"), req.Status)
	if err != nil {
		return respondError(c, h.log, "Could not update order status", err)
	}
	return c.JSON(order)
}

// HandleCancelOrder cancels an order and returns its stock.
func (h *OrderHandler) HandleCancelOrder(c *fiber.Ctx) error {
	orderID := c.Params("id")
	order, err := h.service.GetOrder(c.UserContext(), orderID)
	if err != nil {
		return respondError(c, h.log, "Could not cancel order", err)
	}
	if !canAccess(c, order.UserID) {
		return forbidden(c)
	}
	if err := h.service.CancelOrder(c.UserContext(), orderID); err != nil {
		return respondError(c, h.log, "Could not cancel order", err)
	}
	return c.JSON(fiber.Map{
		"message": fmt.Sprintf("Order %s cancelled successfully", orderID),
	})
}
