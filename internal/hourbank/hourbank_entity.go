package hourbank

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ReasonDeposit    = "deposit"
	ReasonWithdrawal = "withdrawal"
)

// LedgerEntry is append-only. The running sum of Delta per employee is the bank balance.
type LedgerEntry struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Seq              int64           `gorm:"column:seq;autoIncrement;uniqueIndex"`
	EmployeeID       uuid.UUID       `gorm:"column:employee_id;type:uuid;not null;index"`
	TimesheetID      uuid.UUID       `gorm:"column:timesheet_id;type:uuid;not null;index"`
	Month            int             `gorm:"column:month;not null"`
	Year             int             `gorm:"column:year;not null"`
	Delta            decimal.Decimal `gorm:"column:delta;type:numeric(10,2);not null"`
	Reason           string          `gorm:"column:reason;type:varchar(20);not null"`
	ResultingBalance decimal.Decimal `gorm:"column:resulting_balance;type:numeric(10,2);not null"`
	CreatedBy        string          `gorm:"column:created_by;type:varchar(100)"`
	CreatedAt        time.Time       `gorm:"column:created_at"`
}

func (LedgerEntry) TableName() string {
	return "hour_bank_ledger"
}
