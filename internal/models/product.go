package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product represents a catalog item whose stock is held by the inventory ledger.
type Product struct {
	ID                   string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name                 string          `json:"name" gorm:"type:varchar(200);not null"`
	Description          string          `json:"description" gorm:"type:text"`
	Price                decimal.Decimal `json:"price" gorm:"type:numeric(12,2);not null"`
	StockQuantity        int             `json:"stock_quantity" gorm:"not null;default:0;check:stock_quantity >= 0"`
	ReorderLevel         int             `json:"reorder_level" gorm:"not null;default:10"`
	PrescriptionRequired bool            `json:"prescription_required" gorm:"not null;default:false"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// IsLowStock reports whether the product still has stock but sits at or below its reorder level.
func (p Product) IsLowStock() bool {
	return p.StockQuantity > 0 && p.StockQuantity <= p.ReorderLevel
}

// IsOutOfStock reports whether no units are left.
func (p Product) IsOutOfStock() bool {
	return p.StockQuantity == 0
}
