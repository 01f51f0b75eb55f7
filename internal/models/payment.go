package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the settlement state of a payment.
type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "PENDING"
	PaymentStatusProcessing PaymentStatus = "PROCESSING"
	PaymentStatusCompleted  PaymentStatus = "COMPLETED"
	PaymentStatusFailed     PaymentStatus = "FAILED"
	PaymentStatusRefunded   PaymentStatus = "REFUNDED" // not produced by any workflow yet
)

// ActivePaymentStatuses are the statuses of a payment that still drives its order.
var ActivePaymentStatuses = []PaymentStatus{PaymentStatusPending, PaymentStatusProcessing, PaymentStatusCompleted}

// IsActive reports whether a payment can still drive its order forward.
func (s PaymentStatus) IsActive() bool {
	return s != PaymentStatusFailed && s != PaymentStatusRefunded
}

// Payment records a card payment against an order. Amount never changes after creation.
type Payment struct {
	ID                 string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	OrderID            string          `json:"order_id" gorm:"type:varchar(36);index;not null"`
	UserID             string          `json:"user_id" gorm:"type:varchar(36);index;not null"`
	Amount             decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null"`
	PaymentMethod      string          `json:"payment_method" gorm:"type:varchar(50)"`
	Status             PaymentStatus   `json:"status" gorm:"type:varchar(20);not null"`
	TransactionID      string          `json:"transaction_id" gorm:"type:varchar(64);uniqueIndex"`
	CardLastFourDigits string          `json:"card_last_four_digits" gorm:"type:varchar(4)"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}
