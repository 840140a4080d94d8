package timesheet

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	StatusOpen      = "open"
	StatusValidated = "validated"
	StatusClosed    = "closed"
)

const (
	DayTypeWork     = "work"
	DayTypeLeave    = "leave"
	DayTypeSick     = "sick"
	DayTypeTraining = "training"
	DayTypeHoliday  = "holiday"
	DayTypeAbsence  = "absence"
)

var dayTypes = map[string]bool{
	DayTypeWork:     true,
	DayTypeLeave:    true,
	DayTypeSick:     true,
	DayTypeTraining: true,
	DayTypeHoliday:  true,
	DayTypeAbsence:  true,
}

func IsValidDayType(v string) bool {
	return dayTypes[v]
}

type MonthlyTimesheet struct {
	ID               uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	EmployeeID       uuid.UUID       `gorm:"column:employee_id;type:uuid;not null;uniqueIndex:uq_timesheet_employee_period,priority:1"`
	Month            int             `gorm:"column:month;not null;uniqueIndex:uq_timesheet_employee_period,priority:2;index:idx_timesheet_period,priority:2"`
	Year             int             `gorm:"column:year;not null;uniqueIndex:uq_timesheet_employee_period,priority:3;index:idx_timesheet_period,priority:1"`
	WeeklyHours      decimal.Decimal `gorm:"column:weekly_hours;type:numeric(10,2);not null"`
	ContractualHours decimal.Decimal `gorm:"column:contractual_hours;type:numeric(10,2);not null"`
	TotalLoggedHours decimal.Decimal `gorm:"column:total_logged_hours;type:numeric(10,2);not null"`
	BankWithdrawn    decimal.Decimal `gorm:"column:bank_withdrawn;type:numeric(10,2);not null"`
	BankDeposited    decimal.Decimal `gorm:"column:bank_deposited;type:numeric(10,2);not null"`
	Percentage       int             `gorm:"column:percentage;not null;default:0"`
	BankBalanceIn    decimal.Decimal `gorm:"column:bank_balance_in;type:numeric(10,2);not null"`
	BankBalanceOut   decimal.Decimal `gorm:"column:bank_balance_out;type:numeric(10,2);not null"`
	Status           string          `gorm:"column:status;type:varchar(20);not null;default:open"`
	ValidatedAt      *time.Time      `gorm:"column:validated_at;type:timestamptz"`
	ValidatedBy      *string         `gorm:"column:validated_by;type:varchar(100)"`
	ClosedAt         *time.Time      `gorm:"column:closed_at;type:timestamptz"`
	ClosedBy         *string         `gorm:"column:closed_by;type:varchar(100)"`
	CreatedAt        time.Time       `gorm:"column:created_at"`
	UpdatedAt        time.Time       `gorm:"column:updated_at"`
}

func (MonthlyTimesheet) TableName() string {
	return "monthly_timesheets"
}

// EffectiveHours is logged hours plus the net amount moved in from the bank.
func (t *MonthlyTimesheet) EffectiveHours() decimal.Decimal {
	return t.TotalLoggedHours.Add(t.BankWithdrawn).Sub(t.BankDeposited)
}

// Deficit is max(0, contractual - effective).
func (t *MonthlyTimesheet) Deficit() decimal.Decimal {
	d := t.ContractualHours.Sub(t.EffectiveHours())
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// Surplus is max(0, effective - contractual).
func (t *MonthlyTimesheet) Surplus() decimal.Decimal {
	s := t.EffectiveHours().Sub(t.ContractualHours)
	if s.IsNegative() {
		return decimal.Zero
	}
	return s
}

// RefreshPercentage recomputes the completion percentage from the stored totals.
func (t *MonthlyTimesheet) RefreshPercentage() {
	t.Percentage = Percentage(t.EffectiveHours(), t.ContractualHours)
}

// Percentage rounds effective/target*100 half away from zero; a zero target yields 0.
func Percentage(effective, target decimal.Decimal) int {
	if target.IsZero() {
		return 0
	}
	return int(effective.Mul(decimal.NewFromInt(100)).Div(target).Round(0).IntPart())
}

type DailyEntry struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	TimesheetID uuid.UUID       `gorm:"column:timesheet_id;type:uuid;not null;uniqueIndex:uq_daily_entry_date,priority:1"`
	EntryDate   time.Time       `gorm:"column:entry_date;type:date;not null;uniqueIndex:uq_daily_entry_date,priority:2"`
	Hours       decimal.Decimal `gorm:"column:hours;type:numeric(5,2);not null"`
	DayType     string          `gorm:"column:day_type;type:varchar(20);not null"`
	Note        *string         `gorm:"column:note;type:text"`
	CreatedAt   time.Time       `gorm:"column:created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at"`
}

func (DailyEntry) TableName() string {
	return "daily_entries"
}

// SameAs reports whether e already carries in's values.
func (e DailyEntry) SameAs(in EntryInput) bool {
	return e.Hours.Equal(in.Hours) && e.DayType == in.DayType && equalNote(e.Note, in.Note)
}

func equalNote(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// SumLogged totals the hours of work entries.
func SumLogged(entries []DailyEntry) decimal.Decimal {
	total := decimal.Zero
	for _, e := range entries {
		if e.DayType == DayTypeWork {
			total = total.Add(e.Hours)
		}
	}
	return total
}

// EmployeeRef is the read side of the employees table used by the pointage core.
type EmployeeRef struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	FullName       string          `gorm:"column:full_name"`
	EmployeeNumber string          `gorm:"column:employee_number"`
	WeeklyHours    decimal.Decimal `gorm:"column:weekly_hours"`
	IsActive       bool            `gorm:"column:is_active"`
}

func (EmployeeRef) TableName() string {
	return "employees"
}
