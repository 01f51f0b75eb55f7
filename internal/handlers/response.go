package handlers

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"pharmacy/internal/apperrors"
	"pharmacy/internal/middleware"
)

// errorStatus maps an error class to its HTTP status.
func errorStatus(err error) int {
	switch apperrors.Class(err) {
	case apperrors.ErrNotFound:
		return fiber.StatusNotFound
	case apperrors.ErrValidation:
		return fiber.StatusBadRequest
	case apperrors.ErrConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

func respondError(c *fiber.Ctx, log *zap.Logger, message string, err error) error {
	status := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		log.Error(message, zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{
		"message": message,
		"error":   err.Error(),
	})
}

func forbidden(c *fiber.Ctx) error {
	return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
		"message": "Access to this resource is not allowed",
	})
}

// newValidator reports fields by their JSON names.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return f.Name
		}
		return name
	})
	return v
}

// decode parses the JSON body into dst and validates it. When ok is false the 400 response
// has already been written and err is what the handler should return.
func decode(c *fiber.Ctx, v *validator.Validate, dst interface{}) (ok bool, err error) {
	if err := c.BodyParser(dst); err != nil {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Invalid request body",
			"error":   err.Error(),
		})
	}
	return check(c, v, dst)
}

// check validates an already parsed request.
func check(c *fiber.Ctx, v *validator.Validate, dst interface{}) (ok bool, err error) {
	err = v.Struct(dst)
	if err == nil {
		return true, nil
	}
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"error":   err.Error(),
		})
	}
	errorMessages := make(map[string]string, len(validationErrors))
	for _, e := range validationErrors {
		errorMessages[e.Field()] = fmt.Sprintf("Field '%s' failed on the '%s' tag", e.Field(), e.Tag())
	}
	return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
		"message": "Validation failed",
		"errors":  errorMessages,
	})
}

// actingUser returns the user a request acts for. Customers always act for themselves;
// staff, and every caller when authentication is disabled, may name another user.
func actingUser(c *fiber.Ctx, requested string) string {
	identity := middleware.IdentityFrom(c)
	if identity == nil {
		return requested
	}
	if identity.Role.IsStaff() && requested != "" {
		return requested
	}
	return identity.UserID
}

// canAccess reports whether the caller may read resources owned by ownerID.
func canAccess(c *fiber.Ctx, ownerID string) bool {
	identity := middleware.IdentityFrom(c)
	return identity == nil || identity.Role.IsStaff() || identity.UserID == ownerID
}

// reviewer returns the token subject, falling back to requested when authentication is disabled.
func reviewer(c *fiber.Ctx, requested string) string {
	if identity := middleware.IdentityFrom(c); identity != nil {
		return identity.UserID
	}
	return requested
}

// ErrorHandler renders errors that escape the handlers, such as unknown routes, as JSON.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		if status >= fiber.StatusInternalServerError {
			log.Error("unhandled error", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(status).JSON(fiber.Map{
			"message": err.Error(),
		})
	}
}
