package models

import "time"

// PrescriptionStatus is the review state of an uploaded prescription.
type PrescriptionStatus string

const (
	PrescriptionStatusPending  PrescriptionStatus = "PENDING"
	PrescriptionStatusApproved PrescriptionStatus = "APPROVED"
	PrescriptionStatusRejected PrescriptionStatus = "REJECTED"
)

// Prescription authorizes purchase of restricted products once approved by staff.
type Prescription struct {
	ID              string             `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string             `json:"user_id" gorm:"type:varchar(36);index;not null"`
	FileName        string             `json:"file_name" gorm:"type:varchar(255)"`
	DoctorName      string             `json:"doctor_name" gorm:"type:varchar(100)"`
	Notes           string             `json:"notes" gorm:"type:text"`
	Status          PrescriptionStatus `json:"status" gorm:"type:varchar(20);index;not null"`
	ReviewerID      *string            `json:"reviewer_id,omitempty" gorm:"type:varchar(36)"`
	RejectionReason string             `json:"rejection_reason,omitempty" gorm:"type:text"`
	UploadedAt      time.Time          `json:"uploaded_at"`
	ReviewedAt      *time.Time         `json:"reviewed_at,omitempty"`
}

// Reviewed reports whether the prescription reached a terminal review state.
func (p Prescription) Reviewed() bool {
	return p.Status == PrescriptionStatusApproved || p.Status == PrescriptionStatusRejected
}
