package hourbank

import (
	"go-pointage/internal/timesheet"

	"github.com/shopspring/decimal"
)

type WithdrawRequest struct {
	Hours *decimal.Decimal `json:"hours" binding:"required,hours"`
}

type BalanceResponse struct {
	EmployeeID string          `json:"employee_id"`
	Balance    decimal.Decimal `json:"balance"`
}

type LedgerEntryResponse struct {
	ID               string          `json:"id"`
	EmployeeID       string          `json:"employee_id"`
	TimesheetID      string          `json:"timesheet_id"`
	Month            int             `json:"month"`
	Year             int             `json:"year"`
	Delta            decimal.Decimal `json:"delta"`
	Reason           string          `json:"reason"`
	ResultingBalance decimal.Decimal `json:"resulting_balance"`
	CreatedAt        string          `json:"created_at"`
}

// MovementResponse is the outcome of a withdraw or deposit. Entry is nil when nothing moved.
type MovementResponse struct {
	Entry     *LedgerEntryResponse        `json:"entry"`
	Balance   decimal.Decimal             `json:"balance"`
	Timesheet timesheet.TimesheetResponse `json:"timesheet"`
}
