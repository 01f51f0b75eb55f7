package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"pharmacy/internal/services"
)

type uploadPrescriptionRequest struct {
	UserID     string `json:"user_id" validate:"required"`
	FileName   string `json:"file_name" validate:"required"`
	DoctorName string `json:"doctor_name" validate:"required"`
	Notes      string `json:"notes"`
}

type reviewPrescriptionRequest struct {
	ReviewerID string `json:"reviewer_id"`
	Reason     string `json:"reason"`
}

// PrescriptionHandler handles prescription upload and staff review.
type PrescriptionHandler struct {
	service  *services.PrescriptionService
	log      *zap.Logger
	validate *validator.Validate
}

// NewPrescriptionHandler creates a new PrescriptionHandler.
func NewPrescriptionHandler(service *services.PrescriptionService, log *zap.Logger) *PrescriptionHandler {
	return &PrescriptionHandler{
		service:  service,
		log:      log,
		validate: newValidator(),
	}
}

// RegisterRoutes registers the prescription routes. staff guards the review routes.
func (h *PrescriptionHandler) RegisterRoutes(router fiber.Router, staff fiber.Handler) {
	prescriptionRoutes := router.Group("/prescriptions")
	prescriptionRoutes.Post("/", h.HandleUpload)
	prescriptionRoutes.Get("/pending", staff, h.HandleListPending)
	prescriptionRoutes.Get("/:id", h.HandleGet)
	prescriptionRoutes.Post("/:id/approve", staff, h.HandleApprove)
	prescriptionRoutes.Post("/:id/reject", staff, h.HandleReject)

	router.Get("/users/:userId/prescriptions", h.HandleListByUser)
}

// HandleUpload records a new prescription for review.
func (h *PrescriptionHandler) HandleUpload(c *fiber.Ctx) error {
	var req uploadPrescriptionRequest
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

	p, err := h.service.Upload(c.UserContext(), req.UserID, req.FileName, req.DoctorName, req.Notes)
	if err != nil {
		return respondError(c, h.log, "Could not upload prescription", err)
	}
	return c.Status(fiber.StatusCreated).JSON(p)
}

// HandleListPending lists prescriptions awaiting review.
func (h *PrescriptionHandler) HandleListPending(c *fiber.Ctx) error {
	list, err := h.service.ListPending(c.UserContext())
	if err != nil {
		return respondError(c, h.log, "Could not retrieve prescriptions", err)
	}
	return c.JSON(list)
}

// HandleListByUser lists the prescriptions uploaded by one user.
func (h *PrescriptionHandler) HandleListByUser(c *fiber.Ctx) error {
	userID := c.Params("userId")
	if !canAccess(c, userID) {
		return forbidden(c)
	}
	list, err := h.service.ListByUser(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, "Could not retrieve prescriptions", err)
	}
	return c.JSON(list)
}

// HandleGet retrieves a prescription by its ID.
func (h *PrescriptionHandler) HandleGet(c *fiber.Ctx) error {
	p, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, "Could not retrieve prescription", err)
	}
	if !canAccess(c, p.UserID) {
		return forbidden(c)
	}
	return c.JSON(p)
}

// HandleApprove approves a pending prescription on behalf of the calling pharmacist.
func (h *PrescriptionHandler) HandleApprove(c *fiber.Ctx) error {
	var req reviewPrescriptionRequest
	if len(c.Body()) > 0 {
		if ok, err := decode(c, h.validate, &req); !ok {
			return err
		}
	}

	p, err := h.service.Approve(c.UserContext(), c.Params("id"), reviewer(c, req.ReviewerID))
	if err != nil {
		return respondError(c, h.log, "Could not approve prescription", err)
	}
	return c.JSON(p)
}

// HandleReject rejects a pending prescription. The body must carry a reason.
func (h *PrescriptionHandler) HandleReject(c *fiber.Ctx) error {
	var req reviewPrescriptionRequest
	if ok, err := decode(c, h.validate, &req); !ok {
		return err
	}

	p, err := h.service.Reject(c.UserContext(), c.Params("id"), reviewer(c, req.ReviewerID), req.Reason)
	if err != nil {
		return respondError(c, h.log, "Could not reject prescription", err)
	}
	return c.JSON(p)
}
