package infra

import (
	"fmt"

	"bancas/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens the GORM connection, migrates the settlement tables and
// applies the SQL patches GORM cannot express (partial indexes, checks).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Unique violations surface as gorm.ErrDuplicatedKey.
		TranslateError: true,
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

	if err := db.AutoMigrate(
		&model.RestrictionRule{},
		&model.Sorteo{},
		&model.Ticket{},
		&model.Jugada{},
		&model.TicketPayment{},
		&model.EventoPago{},
		&model.PoliticaComision{},
	); err != nil {
		return nil, fmt.Errorf("AutoMigrate: %w", err)
	}

	if err := applySchemaPatches(db); err != nil {
		return nil, fmt.Errorf("schema patches: %w", err)
	}

	return db, nil
}

// applySchemaPatches is idempotent: every statement is guarded so re-running
// on a patched schema is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// An idempotency key maps to at most one active payment per ticket.
		// Reversed rows are excluded so a reversed key can be paid again.
		{"uniq active idempotency key", `
CREATE UNIQUE INDEX IF NOT EXISTS uniq_ticket_payments_idem_active
  ON ticket_payments (ticket_id, idempotency_key) WHERE NOT is_reversed`},
		{"check positive amount_paid", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_ticket_payments_amount_paid') THEN
    ALTER TABLE ticket_payments ADD CONSTRAINT chk_ticket_payments_amount_paid CHECK (amount_paid > 0);
  END IF;
END $$`},
		{"check non-negative cutoff", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_restriction_rules_cutoff') THEN
    ALTER TABLE restriction_rules ADD CONSTRAINT chk_restriction_rules_cutoff
      CHECK (sales_cutoff_minutes IS NULL OR sales_cutoff_minutes >= 0);
  END IF;
END $$`},
		{"idx sorteos open by schedule", `
CREATE INDEX IF NOT EXISTS idx_sorteos_open_scheduled
  ON sorteos (scheduled_at) WHERE status = 'OPEN'`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("%s: %w", p.descr, err)
		}
	}
	return nil
}
