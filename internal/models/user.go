package models

import "time"

// Role is the access level granted by the external identity service.
type Role string

const (
	RoleCustomer   Role = "CUSTOMER"
	RolePharmacist Role = "PHARMACIST"
	RoleAdmin      Role = "ADMIN"
)

// IsStaff reports whether the role may review prescriptions and manage orders.
func (r Role) IsStaff() bool {
	return r == RolePharmacist || r == RoleAdmin
}

// User is a read-only reference to an account owned by the identity service.
type User struct {
	ID        string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Name      string    `json:"name" gorm:"type:varchar(100)"`
	Email     string    `json:"email" gorm:"uniqueIndex;type:varchar(255)"`
	Role      Role      `json:"role" gorm:"type:varchar(20);not null;default:CUSTOMER"`
	CreatedAt time.Time `json:"created_at"`
}
