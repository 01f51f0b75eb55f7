package main

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pharmacy/internal/models"
)

// Fixed identifiers of the development accounts.
const (
	seedCustomerID   = "7b0e3c52-2f0a-4d8e-9a51-6c1f0d7e4a01"
	seedPharmacistID = "7b0e3c52-2f0a-4d8e-9a51-6c1f0d7e4a02"
	seedAdminID      = "7b0e3c52-2f0a-4d8e-9a51-6c1f0d7e4a03"
)

// seed populates an empty store with development users, a small catalog and one approved
// prescription. A store that already holds products is left alone.
func seed(ctx context.Context, st stores, log *zap.Logger) ([]models.User, error) {
	users := []models.User{
		{ID: seedCustomerID, Name: "Casey Customer", Email: "customer@pharmacy.local", Role: models.RoleCustomer},
		{ID: seedPharmacistID, Name: "Pat Pharmacist", Email: "pharmacist@pharmacy.local", Role: models.RolePharmacist},
		{ID: seedAdminID, Name: "Alex Admin", Email: "admin@pharmacy.local", Role: models.RoleAdmin},
	}

	existing, err := st.products.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		log.Info("store already seeded", zap.Int("products", len(existing)))
		return users, nil
	}

	for i := range users {
		if err := st.users.Create(ctx, &users[i]); err != nil {
			return nil, fmt.Errorf("failed to seed user %s: %w", users[i].Email, err)
		}
	}

	products := []models.Product{
		{Name: "Paracetamol 500mg", Description: "Pain relief tablets, 20 pack", Price: decimal.RequireFromString("4.99"), StockQuantity: 120, ReorderLevel: 20},
		{Name: "Ibuprofen 200mg", Description: "Anti-inflammatory tablets, 24 pack", Price: decimal.RequireFromString("6.49"), StockQuantity: 80, ReorderLevel: 20},
		{Name: "Vitamin C 1000mg", Description: "Effervescent tablets, 10 pack", Price: decimal.RequireFromString("7.25"), StockQuantity: 8, ReorderLevel: 10},
		{Name: "Amoxicillin 500mg", Description: "Antibiotic capsules, 21 pack", Price: decimal.RequireFromString("12.80"), StockQuantity: 40, ReorderLevel: 10, PrescriptionRequired: true},
		{Name: "Insulin Glargine Pen", Description: "Long-acting insulin, 5 x 3ml", Price: decimal.RequireFromString("54.00"), StockQuantity: 12, ReorderLevel: 5, PrescriptionRequired: true},
	}
	for i := range products {
		if err := st.products.Create(ctx, &products[i]); err != nil {
			return nil, fmt.Errorf("failed to seed product %s: %w", products[i].Name, err)
		}
		log.Debug("seeded product", zap.String("name", products[i].Name), zap.String("product_id", products[i].ID))
	}

	reviewer := seedPharmacistID
	reviewedAt := time.Now()
	prescription := &models.Prescription{
		UserID:     seedCustomerID,
		FileName:   "amoxicillin-rx.pdf",
		DoctorName: "Dr. Morgan",
		Status:     models.PrescriptionStatusApproved,
		ReviewerID: &reviewer,
		UploadedAt: reviewedAt,
		ReviewedAt: &reviewedAt,
	}
	if err := st.prescriptions.Create(ctx, prescription); err != nil {
		return nil, fmt.Errorf("failed to seed prescription: %w", err)
	}

	log.Info("seeded development data",
		zap.Int("users", len(users)),
		zap.Int("products", len(products)),
		zap.String("prescription_id", prescription.ID),
	)
	return users, nil
}
