package models

import (
	"fmt"

	"gorm.io/gorm"
)

// OpenCartIndexName names the partial unique index that limits a user to one open cart.
const OpenCartIndexName = "idx_carts_open_per_user"

// All lists every persisted model in dependency order.
func All() []any {
	return []any{
		&User{},
		&Event{},
		&Merchandise{},
		&Cart{},
		&CartItem{},
	}
}

// AutoMigrate builds the schema through gorm. Used for sqlite (local runs and
// tests); Postgres goes through the goose migrations.
func AutoMigrate(conn *gorm.DB) error {
	if err := conn.AutoMigrate(All()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	stmt := fmt.Sprintf(
		"CREATE UNIQUE INDEX IF NOT EXISTS %s ON carts (user_id) WHERE status IN ('active', 'pending_payment')",
		OpenCartIndexName,
	)
	if err := conn.Exec(stmt).Error; err != nil {
		return fmt.Errorf("create open cart index: %w", err)
	}
	return nil
}
