package infra

import (
	"fmt"

	"github.com/floradistro/websitev2-sub001/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx. When migrate is
// set it also runs RunMigrations.
func NewDatabase(dsn string, migrate bool) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if migrate {
		if err := RunMigrations(db); err != nil {
			return nil, err
		}
	}
	return db, nil
}

// RunMigrations creates or updates every table, then applies the DDL that
// AutoMigrate cannot express.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Location{},
		&model.User{},
		&model.Product{},
		&model.InventoryMovement{},
		&model.RegisterSession{},
		&model.CashMovement{},
		&model.Order{},
		&model.OrderLine{},
		&model.OrderTender{},
		&model.InventorySync{},
		&model.Receipt{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches runs idempotent DDL: sequences for human-readable
// numbers, the one-open-session partial index, and ledger sign checks.
// Re-running on an already-patched DB is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		{"session number sequence",
			`CREATE SEQUENCE IF NOT EXISTS register_sessions_number_seq START 1`},
		{"order number sequence",
			`CREATE SEQUENCE IF NOT EXISTS orders_number_seq START 1`},
		{"one open session per register",
			`CREATE UNIQUE INDEX IF NOT EXISTS uniq_register_sessions_open
			    ON register_sessions (register_id) WHERE status = 'OPEN'`},
		// Partial index for the inventory retry sweep.
		{"inventory retry index", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_inventory_syncs_pending_retry') THEN
    CREATE INDEX idx_inventory_syncs_pending_retry
        ON inventory_syncs (next_retry_at)
        WHERE status = 'failed' AND next_retry_at IS NOT NULL;
  END IF;
END $$`},
		{"cash movement sign check", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_cash_movements_sign') THEN
    ALTER TABLE cash_movements ADD CONSTRAINT chk_cash_movements_sign CHECK (
      (type = 'NO_SALE' AND amount = 0) OR
      (type IN ('PAID_OUT', 'REFUND') AND amount < 0) OR
      (type IN ('SALE', 'PAID_IN') AND amount > 0) OR
      (type = 'OPENING' AND amount >= 0)
    );
  END IF;
END $$`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
