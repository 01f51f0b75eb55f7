package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"pharmacy/internal/services"
)

type updateStockRequest struct {
	Quantity  int    `json:"quantity"`
	Operation string `json:"operation" validate:"required"`
}

// InventoryHandler exposes the catalog and manual stock adjustments.
type InventoryHandler struct {
	service  *services.InventoryService
	log      *zap.Logger
	validate *validator.Validate
}

// NewInventoryHandler creates a new InventoryHandler.
func NewInventoryHandler(service *services.InventoryService, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		service:  service,
		log:      log,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the product routes. staff guards stock adjustments.
func (h *InventoryHandler) RegisterRoutes(router fiber.Router, staff fiber.Handler) {
	productRoutes := router.Group("/products")
	productRoutes.Get("/", h.HandleGetProducts)
	productRoutes.Get("/low-stock", h.HandleGetLowStock)
	productRoutes.Get("/:id", h.HandleGetProductByID)
	productRoutes.Post("/:id/stock", staff, h.HandleUpdateStock)
}

// HandleGetProducts retrieves all products.
func (h *InventoryHandler) HandleGetProducts(c *fiber.Ctx) error {
	products, err := h.service.ListProducts(c.UserContext())
	if err != nil {
		return respondError(c, h.log, "Could not retrieve products", err)
	}
	return c.JSON(products)
}

// HandleGetLowStock lists products at or below their reorder level.
func (h *InventoryHandler) HandleGetLowStock(c *fiber.Ctx) error {
	products, err := h.service.LowStockProducts(c.UserContext())
	if err != nil {
		return respondError(c, h.log, "Could not retrieve products", err)
	}
	return c.JSON(products)
}

// HandleGetProductByID retrieves a single product by its ID.
func (h *InventoryHandler) HandleGetProductByID(c *fiber.Ctx) error {
	product, err := h.service.GetProduct(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, "Could not retrieve product", err)
	}
	return c.JSON(product)
}

// HandleUpdateStock applies an ADD or SUBTRACT adjustment.
func (h *InventoryHandler) HandleUpdateStock(c *fiber.Ctx) error {
	var req updateStockRequest
	if ok, err := decode(c, h.validate, &req); !ok {
		return err
	}

	product, err := h.service.UpdateStock(c.UserContext(), c.Params("id"), req.Quantity, req.Operation)
	if err != nil {
		return respondError(c, h.log, "Could not update stock", err)
	}
	return c.JSON(product)
}
