package timesheet

import (
	"time"

	"github.com/shopspring/decimal"
)

type DailyEntryRequest struct {
	EntryDate string           `json:"entry_date" binding:"required"`
	Hours     *decimal.Decimal `json:"hours" binding:"required,hours"`
	DayType   string           `json:"day_type" binding:"required,oneof=work leave sick training holiday absence"`
	Note      *string          `json:"note" binding:"omitempty,max=500"`
}

type BatchEntriesRequest struct {
	Entries []DailyEntryRequest `json:"entries" binding:"required,min=1,dive"`
}

// EntryInput is the parsed form of DailyEntryRequest.
type EntryInput struct {
	Date    time.Time
	Hours   decimal.Decimal
	DayType string
	Note    *string
}

type DailyEntryResponse struct {
	ID        string          `json:"id"`
	EntryDate string          `json:"entry_date"`
	Hours     decimal.Decimal `json:"hours"`
	DayType   string          `json:"day_type"`
	Note      *string         `json:"note,omitempty"`
}

type TimesheetResponse struct {
	ID               string               `json:"id"`
	EmployeeID       string               `json:"employee_id"`
	Month            int                  `json:"month"`
	Year             int                  `json:"year"`
	Status           string               `json:"status"`
	WeeklyHours      decimal.Decimal      `json:"weekly_hours"`
	ContractualHours decimal.Decimal      `json:"contractual_hours"`
	TotalLoggedHours decimal.Decimal      `json:"total_logged_hours"`
	BankWithdrawn    decimal.Decimal      `json:"bank_withdrawn"`
	BankDeposited    decimal.Decimal      `json:"bank_deposited"`
	EffectiveHours   decimal.Decimal      `json:"effective_hours"`
	Deficit          decimal.Decimal      `json:"deficit"`
	Surplus          decimal.Decimal      `json:"surplus"`
	Percentage       int                  `json:"percentage"`
	BankBalanceIn    decimal.Decimal      `json:"bank_balance_in"`
	BankBalanceOut   decimal.Decimal      `json:"bank_balance_out"`
	ValidatedAt      *string              `json:"validated_at,omitempty"`
	ValidatedBy      *string              `json:"validated_by,omitempty"`
	ClosedAt         *string              `json:"closed_at,omitempty"`
	Entries          []DailyEntryResponse `json:"entries"`
}

type OverviewRow struct {
	EmployeeID       string          `json:"employee_id"`
	EmployeeName     string          `json:"employee_name"`
	EmployeeNumber   string          `json:"employee_number"`
	TimesheetID      string          `json:"timesheet_id,omitempty"`
	Status           string          `json:"status"`
	ContractualHours decimal.Decimal `json:"contractual_hours"`
	TotalLoggedHours decimal.Decimal `json:"total_logged_hours"`
	EffectiveHours   decimal.Decimal `json:"effective_hours"`
	Percentage       int             `json:"percentage"`
	BankBalanceIn    decimal.Decimal `json:"bank_balance_in"`
	BankBalanceOut   decimal.Decimal `json:"bank_balance_out"`
}
