package repositories

import (
	"context"

	"pharmacy/internal/models"
)

// PrescriptionRepository defines the interface for prescription data access.
type PrescriptionRepository interface {
	Create(ctx context.Context, prescription *models.Prescription) error
	GetByID(ctx context.Context, id string) (*models.Prescription, error)
	GetByUserID(ctx context.Context, userID string) ([]models.Prescription, error)
	GetByStatus(ctx context.Context, status models.PrescriptionStatus) ([]models.Prescription, error)
	// Review stores the review outcome only if the stored prescription is still PENDING.
	// It reports whether the review was applied.
	Review(ctx context.Context, prescription *models.Prescription) (bool, error)
}
