package handlers

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"pharmacy/internal/apperrors"
	"pharmacy/internal/services"
)

type initiatePaymentRequest struct {
	OrderID        string `json:"order_id" validate:"required"`
	UserID         string `json:"user_id" validate:"required"`
	CardNumber     string `json:"card_number"`
	CardHolderName string `json:"card_holder_name" validate:"required"`
	ExpiryMonth    string `json:"expiry_month"`
	ExpiryYear     string `json:"expiry_year"`
	Cvv            string `json:"cvv"`
}

type verifyPaymentRequest struct {
	PaymentID string `json:"payment_id" validate:"required"`
}

// PaymentHandler handles HTTP requests for card payments.
type PaymentHandler struct {
	service  *services.PaymentService
	log      *zap.Logger
	validate *validator.Validate
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(service *services.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service:  service,
		log:      log,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the payment routes.
func (h *PaymentHandler) RegisterRoutes(router fiber.Router) {
	paymentRoutes := router.Group("/payments")
	paymentRoutes.Post("/initiate", h.HandleInitiatePayment)
	paymentRoutes.Post("/verify", h.HandleVerifyPayment)
	paymentRoutes.Get("/history", h.HandleGetPaymentHistory)
	paymentRoutes.Get("/:id", h.HandleGetPayment)
}

// HandleInitiatePayment validates the card and starts a payment for an order. Paying for
// another user's order is forbidden.
func (h *PaymentHandler) HandleInitiatePayment(c *fiber.Ctx) error {
	var req initiatePaymentRequest
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

	payment, err := h.service.InitiatePayment(c.UserContext(), services.InitiatePaymentRequest{
		OrderID:        req.OrderID,
		UserID:         req.UserID,
		CardNumber:     req.CardNumber,
		CardHolderName: req.CardHolderName,
		ExpiryMonth:    req.ExpiryMonth,
		ExpiryYear:     req.ExpiryYear,
		Cvv:            req.Cvv,
	})
	if errors.Is(err, apperrors.ErrOrderNotOwned) {
		return forbidden(c)
	}
	if err != nil {
		return respondError(c, h.log, "Payment could not be initiated", err)
	}
	return c.Status(fiber.StatusCreated).JSON(payment)
}

// HandleVerifyPayment settles a processing payment.
func (h *PaymentHandler) HandleVerifyPayment(c *fiber.Ctx) error {
	var req verifyPaymentRequest
	if ok, err := decode(c, h.validate, &req); !ok {
		return err
	}

	payment, err := h.service.GetPayment(c.UserContext(), req.PaymentID)
	if err != nil {
		return respondError(c, h.log, "Payment could not be verified", err)
	}
	if !canAccess(c, payment.UserID) {
		return forbidden(c)
	}
	payment, err = h.service.VerifyPayment(c.UserContext(), req.PaymentID)
	if err != nil {
		return respondError(c, h.log, "Payment could not be verified", err)
	}
	return c.JSON(payment)
}

// HandleGetPaymentHistory lists the payments of the user named by the userId query parameter.
func (h *PaymentHandler) HandleGetPaymentHistory(c *fiber.Ctx) error {
	userID := actingUser(c, c.Query("userId"))
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "userId query parameter is required",
		})
	}
	payments, err := h.service.GetPaymentHistory(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, "Could not retrieve payment history", err)
	}
	return c.JSON(payments)
}

// HandleGetPayment retrieves a single payment by its ID.
func (h *PaymentHandler) HandleGetPayment(c *fiber.Ctx) error {
	payment, err := h.service.GetPayment(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, "Could not retrieve payment", err)
	}
	if !canAccess(c, payment.UserID) {
		return forbidden(c)
	}
	return c.JSON(payment)
}
