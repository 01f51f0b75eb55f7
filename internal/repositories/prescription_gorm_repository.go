package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"pharmacy/internal/apperrors"
	"pharmacy/internal/models"
)

// GORMPrescriptionRepository is a GORM implementation of PrescriptionRepository.
type GORMPrescriptionRepository struct {
	db *gorm.DB
}

// NewGORMPrescriptionRepository creates a new instance of GORMPrescriptionRepository.
func NewGORMPrescriptionRepository(db *gorm.DB) *GORMPrescriptionRepository {
	return &GORMPrescriptionRepository{db: db}
}

// Create stores a new prescription.
func (r *GORMPrescriptionRepository) Create(ctx context.Context, prescription *models.Prescription) error {
	if prescription.ID == "" {
		prescription.ID = uuid.New().String()
	}
	if err := r.db.WithContext(ctx).Create(prescription).Error; err != nil {
		return fmt.Errorf("failed to create prescription: %w", err)
	}
	return nil
}

// GetByID retrieves a prescription by its ID.
func (r *GORMPrescriptionRepository) GetByID(ctx context.Context, id string) (*models.Prescription, error) {
	var p models.Prescription
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("prescription with ID %s: %w", id, apperrors.ErrPrescriptionNotFound)
		}
		return nil, fmt.Errorf("failed to get prescription by ID %s: %w", id, err)
	}
	return &p, nil
}

// GetByUserID lists a user's prescriptions.
func (r *GORMPrescriptionRepository) GetByUserID(ctx context.Context, userID string) ([]models.Prescription, error) {
	var list []models.Prescription
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("uploaded_at").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to get prescriptions for user %s: %w", userID, err)
	}
	return list, nil
}

// GetByStatus lists prescriptions in status.
func (r *GORMPrescriptionRepository) GetByStatus(ctx context.Context, status models.PrescriptionStatus) ([]models.Prescription, error) {
	var list []models.Prescription
	if err := r.db.WithContext(ctx).Where("status = ?", status).Order("uploaded_at").Find(&list).Error; err != nil {
		return nil, fmt.Errorf("failed to get prescriptions with status %s: %w", status, err)
	}
	return list, nil
}

// Review stores the review outcome only while the prescription is still PENDING.
func (r *GORMPrescriptionRepository) Review(ctx context.Context, p *models.Prescription) (bool, error) {
	res := r.db.WithContext(ctx).Model(&models.Prescription{}).
		Where("id = ? AND status = ?", p.ID, models.PrescriptionStatusPending).
		Updates(map[string]interface{}{
			"status":           p.Status,
			"reviewer_id":      p.ReviewerID,
			"rejection_reason": p.RejectionReason,
			"reviewed_at":      p.ReviewedAt,
		})
	if res.Error != nil {
		return false, fmt.Errorf("failed to review prescription %s: %w", p.ID, res.Error)
	}
	return res.RowsAffected == 1, nil
}
