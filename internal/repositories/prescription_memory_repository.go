package repositories

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"pharmacy/internal/apperrors"
	"pharmacy/internal/models"
)

// MemoryPrescriptionRepository is an in-memory implementation of PrescriptionRepository.
type MemoryPrescriptionRepository struct {
	prescriptions map[string]models.Prescription
	mu            sync.RWMutex
}

// NewMemoryPrescriptionRepository creates a new instance of MemoryPrescriptionRepository.
func NewMemoryPrescriptionRepository() *MemoryPrescriptionRepository {
	return &MemoryPrescriptionRepository{prescriptions: make(map[string]models.Prescription)}
}

// Create stores a new prescription.
func (r *MemoryPrescriptionRepository) Create(_ context.Context, p *models.Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	r.prescriptions[p.ID] = *p
	return nil
}

// GetByID retrieves a prescription by its ID.
func (r *MemoryPrescriptionRepository) GetByID(_ context.Context, id string) (*models.Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.prescriptions[id]
	if !ok {
		return nil, fmt.Errorf("prescription with ID %s: %w", id, apperrors.ErrPrescriptionNotFound)
	}
	return &p, nil
}

func (r *MemoryPrescriptionRepository) filter(keep func(models.Prescription) bool) []models.Prescription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []models.Prescription
	for _, p := range r.prescriptions {
		if keep(p) {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UploadedAt.Before(out[j].UploadedAt) })
	return out
}

// GetByUserID lists a user's prescriptions.
func (r *MemoryPrescriptionRepository) GetByUserID(_ context.Context, userID string) ([]models.Prescription, error) {
	return r.filter(func(p models.Prescription) bool { return p.UserID == userID }), nil
}

// GetByStatus lists prescriptions in status.
func (r *MemoryPrescriptionRepository) GetByStatus(_ context.Context, status models.PrescriptionStatus) ([]models.Prescription, error) {
	return r.filter(func(p models.Prescription) bool { return p.Status == status }), nil
}

// Review stores the review outcome only while the prescription is still PENDING.
func (r *MemoryPrescriptionRepository) Review(_ context.Context, p *models.Prescription) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.prescriptions[p.ID]
	if !ok {
		return false, fmt.Errorf("prescription with ID %s: %w", p.ID, apperrors.ErrPrescriptionNotFound)
	}
	if stored.Status != models.PrescriptionStatusPending {
		return false, nil
	}
	stored.Status = p.Status
	stored.ReviewerID = p.ReviewerID
	stored.RejectionReason = p.RejectionReason
	stored.ReviewedAt = p.ReviewedAt
	r.prescriptions[p.ID] = stored
	return true, nil
}
