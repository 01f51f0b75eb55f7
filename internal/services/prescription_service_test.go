package services_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pharmacy/internal/apperrors"
	"pharmacy/internal/models"
	"pharmacy/internal/notifications"
)

func TestPrescriptionService_Authorize(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.prescription.Authorize(ctx, "missing"), apperrors.ErrPrescriptionNotFound)

	pending := f.prescriptionWithStatus(t, models.PrescriptionStatusPending)
	assert.ErrorIs(t, f.prescription.Authorize(ctx, pending), apperrors.ErrPrescriptionNotApproved)

	rejected := f.prescriptionWithStatus(t, models.PrescriptionStatusRejected)
	assert.ErrorIs(t, f.prescription.Authorize(ctx, rejected), apperrors.ErrPrescriptionNotApproved)

	approved := f.prescriptionWithStatus(t, models.PrescriptionStatusApproved)
	assert.NoError(t, f.prescription.Authorize(ctx, approved))
	assert.NoError(t, f.prescription.Authorize(ctx, approved))

	got, err := f.prescription.Get(ctx, approved)
	require.NoError(t, err)
	assert.Equal(t, models.PrescriptionStatusApproved, got.Status)
}

func TestPrescriptionService_UploadAndReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.prescription.Upload(ctx, f.customer.ID, "scan.jpg", "Dr. Grey", "twice daily")
	require.NoError(t, err)
	assert.Equal(t, models.PrescriptionStatusPending, p.Status)
	assert.False(t, p.UploadedAt.IsZero())

	pending, err := f.prescription.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	approved, err := f.prescription.Approve(ctx, p.ID, f.pharmacist.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PrescriptionStatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewerID)
	assert.Equal(t, f.pharmacist.ID, *approved.ReviewerID)
	require.NotNil(t, approved.ReviewedAt)

	_, err = f.prescription.Reject(ctx, p.ID, f.pharmacist.ID, "too late")
	assert.ErrorIs(t, err, apperrors.ErrPrescriptionAlreadyReviewed)
	_, err = f.prescription.Approve(ctx, p.ID, f.pharmacist.ID)
	assert.ErrorIs(t, err, apperrors.ErrPrescriptionAlreadyReviewed)

	pending, err = f.prescription.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	mine, err := f.prescription.ListByUser(ctx, f.customer.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	events := f.sink.(*recordingSink).ofType(notifications.PrescriptionUpdate)
	require.Len(t, events, 2)
	assert.Equal(t, "Prescription Uploaded", events[0].Title)
	assert.Equal(t, "Prescription Approved", events[1].Title)
	assert.Equal(t, f.customer.ID, events[1].UserID)
}

func TestPrescriptionService_Reject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	p, err := f.prescription.Upload(ctx, f.customer.ID, "scan.jpg", "Dr. Grey", "")
	require.NoError(t, err)

	_, err = f.prescription.Reject(ctx, p.ID, f.pharmacist.ID, "  ")
	assert.ErrorIs(t, err, apperrors.ErrRejectionReason)

	_, err = f.prescription.Reject(ctx, p.ID, "ghost", "unreadable")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	rejected, err := f.prescription.Reject(ctx, p.ID, f.pharmacist.ID, "unreadable")
	require.NoError(t, err)
	assert.Equal(t, models.PrescriptionStatusRejected, rejected.Status)
	assert.Equal(t, "unreadable", rejected.RejectionReason)

	events := f.sink.(*recordingSink).ofType(notifications.PrescriptionUpdate)
	require.Len(t, events, 2)
	assert.Contains(t, events[1].Message, "unreadable")
}

func TestPrescriptionService_UnknownUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.prescription.Upload(ctx, "ghost", "scan.jpg", "Dr. Grey", "")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	_, err = f.prescription.ListByUser(ctx, "ghost")
	assert.ErrorIs(t, err, apperrors.ErrUserNotFound)

	_, err = f.prescription.Approve(ctx, "missing", f.pharmacist.ID)
	assert.ErrorIs(t, err, apperrors.ErrPrescriptionNotFound)
}
