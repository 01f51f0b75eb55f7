package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"pharmacy/internal/apperrors"
	"pharmacy/internal/models"
	"pharmacy/internal/notifications"
	"pharmacy/internal/repositories"
)

// PrescriptionService handles prescription upload, staff review and the purchase gate.
type PrescriptionService struct {
	repo     repositories.PrescriptionRepository
	userRepo repositories.UserRepository
	sink     notifications.Sink
	log      *zap.Logger
}

// NewPrescriptionService creates a new PrescriptionService.
func NewPrescriptionService(
	repo repositories.PrescriptionRepository,
	userRepo repositories.UserRepository,
	sink notifications.Sink,
	log *zap.Logger,
) *PrescriptionService {
	return &PrescriptionService{
		repo:     repo,
		userRepo: userRepo,
		sink:     sink,
		log:      log,
	}
}

// Authorize succeeds only when the prescription exists and is APPROVED. It never changes state.
func (s *PrescriptionService) Authorize(ctx context.Context, prescriptionID string) (err error) {
	ctx, span := startSpan(ctx, "prescription.authorize", attribute.String("prescription.id", prescriptionID))
	defer endSpan(span, &err)

	p, err := s.repo.GetByID(ctx, prescriptionID)
	if err != nil {
		return err
	}
	if p.Status != models.PrescriptionStatusApproved {
		return fmt.Errorf("prescription %s is %s: %w", p.ID, p.Status, apperrors.ErrPrescriptionNotApproved)
	}
	return nil
}

// Upload records a new prescription awaiting review.
func (s *PrescriptionService) Upload(ctx context.Context, userID, fileName, doctorName, notes string) (*models.Prescription, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	p := &models.Prescription{
		ID:         uuid.New().String(),
		UserID:     user.ID,
		FileName:   fileName,
		DoctorName: doctorName,
		Notes:      notes,
		Status:     models.PrescriptionStatusPending,
		UploadedAt: time.Now(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info("prescription uploaded", zap.String("prescription_id", p.ID), zap.String("user_id", user.ID))
	s.sink.Notify(ctx, notifications.NewEvent(user.ID, notifications.PrescriptionUpdate,
		"Prescription Uploaded",
		"Your prescription has been uploaded successfully and is pending review.",
		p.ID))
	return p, nil
}

// Approve marks a pending prescription as approved by reviewerID.
func (s *PrescriptionService) Approve(ctx context.Context, id, reviewerID string) (*models.Prescription, error) {
	p, err := s.review(ctx, id, reviewerID, models.PrescriptionStatusApproved, "")
	if err != nil {
		return nil, err
	}
	s.sink.Notify(ctx, notifications.NewEvent(p.UserID, notifications.PrescriptionUpdate,
		"Prescription Approved",
		"Your prescription has been approved by our pharmacist.",
		p.ID))
	return p, nil
}

// Reject marks a pending prescription as rejected. A reason is required.
func (s *PrescriptionService) Reject(ctx context.Context, id, reviewerID, reason string) (*models.Prescription, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.ErrRejectionReason
	}
	p, err := s.review(ctx, id, reviewerID, models.PrescriptionStatusRejected, reason)
	if err != nil {
		return nil, err
	}
	s.sink.Notify(ctx, notifications.NewEvent(p.UserID, notifications.PrescriptionUpdate,
		"Prescription Rejected",
		"Your prescription has been rejected. Reason: "+reason,
		p.ID))
	return p, nil
}

func (s *PrescriptionService) review(
	ctx context.Context,
	id, reviewerID string,
	status models.PrescriptionStatus,
	reason string,
) (p *models.Prescription, err error) {
	ctx, span := startSpan(ctx, "prescription.review",
		attribute.String("prescription.id", id), attribute.String("status", string(status)))
	defer endSpan(span, &err)

	p, err = s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Reviewed() {
		return nil, fmt.Errorf("prescription %s is %s: %w", p.ID, p.Status, apperrors.ErrPrescriptionAlreadyReviewed)
	}
	reviewer, err := s.userRepo.GetByID(ctx, reviewerID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	p.Status = status
	p.ReviewerID = &reviewer.ID
	p.ReviewedAt = &now
	p.RejectionReason = reason

	applied, err := s.repo.Review(ctx, p)
	if err != nil {
		return nil, err
	}
	if !applied {
		return nil, fmt.Errorf("prescription %s: %w", p.ID, apperrors.ErrPrescriptionAlreadyReviewed)
	}

	s.log.Info("prescription reviewed",
		zap.String("prescription_id", p.ID),
		zap.String("status", string(status)),
		zap.String("reviewer_id", reviewer.ID),
	)
	return p, nil
}

// Get retrieves a prescription by its ID.
func (s *PrescriptionService) Get(ctx context.Context, id string) (*models.Prescription, error) {
	return s.repo.GetByID(ctx, id)
}

// ListPending lists prescriptions awaiting review, oldest first.
func (s *PrescriptionService) ListPending(ctx context.Context) ([]models.Prescription, error) {
	return s.repo.GetByStatus(ctx, models.PrescriptionStatusPending)
}

// ListByUser lists the prescriptions uploaded by a user.
func (s *PrescriptionService) ListByUser(ctx context.Context, userID string) ([]models.Prescription, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.repo.GetByUserID(ctx, userID)
}
