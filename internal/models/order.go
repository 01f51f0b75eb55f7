package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pharmacy/internal/apperrors"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
)

var orderStatuses = map[OrderStatus]struct{}{
	OrderStatusPending:    {},
	OrderStatusConfirmed:  {},
	OrderStatusProcessing: {},
	OrderStatusShipped:    {},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// ParseOrderStatus accepts a status name in any case and returns its canonical form.
func ParseOrderStatus(s string) (OrderStatus, error) {
	status := OrderStatus(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := orderStatuses[status]; !ok {
		return "", apperrors.ErrInvalidStatus
	}
	return status, nil
}

// ReturnsStock reports whether moving from s to next must put the order's items back into inventory:
// leaving DELIVERED, or entering CANCELLED from any other state.
func (s OrderStatus) ReturnsStock(next OrderStatus) bool {
	if s == OrderStatusDelivered && next != OrderStatusDelivered {
		return true
	}
	return next == OrderStatusCancelled && s != OrderStatusCancelled
}

// PayableStatuses are the order statuses a payment may be started or settled in.
var PayableStatuses = []OrderStatus{OrderStatusPending, OrderStatusConfirmed}

// Payable reports whether the order still awaits payment.
func (s OrderStatus) Payable() bool {
	return s == OrderStatusPending || s == OrderStatusConfirmed
}

// OrderItem represents a single line of an order. Price is the unit price at the time of order.
type OrderItem struct {
	ID        uint            `json:"-" gorm:"primaryKey"`
	OrderID   string          `json:"order_id" gorm:"type:varchar(36);index;not null"`
	Position  int             `json:"-" gorm:"not null"`
	ProductID string          `json:"product_id" gorm:"type:varchar(36);not null"`
	Quantity  int             `json:"quantity" gorm:"not null"`
	Price     decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	Subtotal  decimal.Decimal `json:"subtotal" gorm:"type:numeric(12,2);not null"`
}

// NewOrderItem snapshots unitPrice and computes the line subtotal.
func NewOrderItem(productID string, quantity int, unitPrice decimal.Decimal) OrderItem {
	return OrderItem{
		ProductID: productID,
		Quantity:  quantity,
		Price:     unitPrice,
		Subtotal:  unitPrice.Mul(decimal.NewFromInt(int64(quantity))),
	}
}

// Order represents a customer order.
type Order struct {
	ID              string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	UserID          string          `json:"user_id" gorm:"type:varchar(36);index;not null"`
	Items           []OrderItem     `json:"items" gorm:"foreignKey:OrderID"`
	Status          OrderStatus     `json:"status" gorm:"type:varchar(20);not null"`
	TotalAmount     decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	ShippingAddress string          `json:"shipping_address" gorm:"type:text"`
	PaymentMethod   string          `json:"payment_method" gorm:"type:varchar(50)"`
	PrescriptionID  *string         `json:"prescription_id,omitempty" gorm:"type:varchar(36)"`
	StockReturned   bool            `json:"stock_returned" gorm:"not null;default:false"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// ItemsTotal sums the subtotals of the order lines.
func ItemsTotal(items []OrderItem) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(it.Subtotal)
	}
	return total
}
