package app

import (
	"go-pointage/internal/employee"
	"go-pointage/internal/hourbank"
	"go-pointage/internal/rbac"
	"go-pointage/internal/timesheet"

	"gorm.io/gorm"
)

var rawMigrations = []string{
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id UUID PRIMARY KEY,
		request_id TEXT,
		aggregate_type TEXT NOT NULL,
		aggregate_id TEXT NOT NULL,
		event_type TEXT NOT NULL,
		topic TEXT NOT NULL,
		payload JSONB NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		retry_count INT NOT NULL DEFAULT 0,
		error_message TEXT,
		next_retry_at TIMESTAMPTZ,
		processed_at TIMESTAMPTZ,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_events_pending ON outbox_events (status, next_retry_at, created_at)`,
	`CREATE TABLE IF NOT EXISTS counters (
		counter_type TEXT PRIMARY KEY,
		last_value BIGINT NOT NULL DEFAULT 0,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_hour_bank_ledger_employee_seq ON hour_bank_ledger (employee_id, seq)`,
}

// Migrate creates the pointage schema. Safe to run on every start.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&employee.Employee{},
		&timesheet.MonthlyTimesheet{},
		&timesheet.DailyEntry{},
		&hourbank.LedgerEntry{},
		&rbac.RolePermissionRow{},
	); err != nil {
		return err
	}

	for _, stmt := range rawMigrations {
		if err := db.Exec(stmt).Error; err != nil {
			return err
		}
	}
	return nil
}
