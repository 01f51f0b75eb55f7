// Package apperrors defines the error taxonomy shared by repositories, services and handlers.
//
// Every specific error wraps exactly one class error so callers can branch either on the
// concrete condition (errors.Is(err, ErrOrderNotFound)) or on the class (errors.Is(err, ErrNotFound)).
package apperrors

import (
	"errors"
	"fmt"
)

// Class errors.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("state conflict")
)

// Not found.
var (
	ErrUserNotFound         = fmt.Errorf("user %w", ErrNotFound)
	ErrOrderNotFound        = fmt.Errorf("order %w", ErrNotFound)
	ErrProductNotFound      = fmt.Errorf("product %w", ErrNotFound)
	ErrPaymentNotFound      = fmt.Errorf("payment %w", ErrNotFound)
	ErrPrescriptionNotFound = fmt.Errorf("prescription %w", ErrNotFound)
)

// Validation failures.
var (
	ErrInvalidStatus         = fmt.Errorf("%w: invalid status", ErrValidation)
	ErrInvalidCardNumber     = fmt.Errorf("%w: invalid card number", ErrValidation)
	ErrInvalidCvv            = fmt.Errorf("%w: invalid cvv, must be 3 digits", ErrValidation)
	ErrCardExpired           = fmt.Errorf("%w: card has expired", ErrValidation)
	ErrInvalidStockOperation = fmt.Errorf("%w: invalid stock operation, use ADD or SUBTRACT", ErrValidation)
	ErrInvalidQuantity       = fmt.Errorf("%w: quantity must be greater than zero", ErrValidation)
	ErrEmptyOrder            = fmt.Errorf("%w: order must contain at least one item", ErrValidation)
	ErrRejectionReason       = fmt.Errorf("%w: rejection reason is required", ErrValidation)
	ErrOrderNotOwned         = fmt.Errorf("%w: order belongs to another user", ErrValidation)
)

// State conflicts.
var (
	ErrInsufficientStock           = fmt.Errorf("%w: insufficient stock", ErrConflict)
	ErrPrescriptionRequired        = fmt.Errorf("%w: product requires prescription", ErrConflict)
	ErrPrescriptionNotApproved     = fmt.Errorf("%w: prescription must be approved before ordering", ErrConflict)
	ErrPrescriptionAlreadyReviewed = fmt.Errorf("%w: prescription has already been reviewed", ErrConflict)
	ErrPaymentNotProcessing        = fmt.Errorf("%w: payment is not in processing state", ErrConflict)
	ErrPaymentAlreadyActive        = fmt.Errorf("%w: order already has an active payment", ErrConflict)
	ErrOrderAlreadyDelivered       = fmt.Errorf("%w: cannot cancel delivered order", ErrConflict)
	ErrOrderNotPayable             = fmt.Errorf("%w: order cannot accept a payment in its current status", ErrConflict)
	ErrOrderStatusChanged          = fmt.Errorf("%w: order status changed concurrently", ErrConflict)
)

// Class returns the class error err belongs to, or nil when it is unclassified
// (storage or transport failures).
func Class(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return ErrNotFound
	case errors.Is(err, ErrValidation):
		return ErrValidation
	case errors.Is(err, ErrConflict):
		return ErrConflict
	default:
		return nil
	}
}
