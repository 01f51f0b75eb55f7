package database

import (
	"fmt"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"pharmacy/internal/models"
)

// Open connects to the database for driver and migrates the schema.
func Open(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates or updates the tables for all models.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Prescription{},
		&models.Order{},
		&models.OrderItem{},
		&models.Payment{},
	)
	if err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := db.Exec(activePaymentIndex()).Error; err != nil {
		return fmt.Errorf("failed to create active payment index: %w", err)
	}
	return nil
}

// activePaymentIndex allows at most one active payment per order.
func activePaymentIndex() string {
	statuses := make([]string, len(models.ActivePaymentStatuses))
	for i, s := range models.ActivePaymentStatuses {
		statuses[i] = "'" + string(s) + "'"
	}
	return fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_payments_active_order ON payments (order_id) WHERE status IN (%s)",
		strings.Join(statuses, ", "),
	)
}
