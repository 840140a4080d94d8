package hourbank

import (
	"context"
	"database/sql"
	"time"

	"go-pointage/internal/calendar"
	hourbankerrors "go-pointage/internal/hourbank/errors"
	"go-pointage/internal/shared/contextutil"
	"go-pointage/internal/timesheet"
	timesheeterrors "go-pointage/internal/timesheet/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Ledger applies bank movements to a timesheet the caller has already locked.
// It mutates ts in memory; persisting ts is the caller's job, inside the same transaction.
type Ledger struct {
	repo Repository
	now  func() time.Time
}

func NewLedger(repo Repository) *Ledger {
	return &Ledger{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

func (l *Ledger) WithTx(tx *sql.Tx) *Ledger {
	return &Ledger{repo: l.repo.WithTx(tx), now: l.now}
}

// Withdraw moves up to hours from the bank into ts, capped at the month's deficit.
// A zero cap records nothing and returns a nil entry.
func (l *Ledger) Withdraw(ctx context.Context, ts *timesheet.MonthlyTimesheet, hours decimal.Decimal) (*LedgerEntry, error) {
	if !hours.IsPositive() {
		return nil, hourbankerrors.ErrInvalidHours
	}
	if !calendar.FitsHoursPlaces(hours) {
		return nil, hourbankerrors.ErrHoursPrecision
	}
	if ts.Status != timesheet.StatusOpen {
		return nil, timesheeterrors.ErrTimesheetLocked.WithDetails(map[string]any{"status": ts.Status})
	}

	employeeID := ts.EmployeeID.String()
	if err := l.repo.LockEmployee(ctx, employeeID); err != nil {
		return nil, err
	}

	amount := decimal.Min(hours, ts.Deficit())
	if amount.IsZero() {
		return nil, nil
	}

	balance, err := l.repo.Balance(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	if amount.GreaterThan(balance) {
		return nil, hourbankerrors.ErrInsufficientBankBalance.WithDetails(map[string]any{
			"requested": hours.String(),
			"capped":    amount.String(),
			"balance":   balance.String(),
		})
	}

	entry, err := l.append(ctx, ts, amount.Neg(), ReasonWithdrawal, balance)
	if err != nil {
		return nil, err
	}
	ts.BankWithdrawn = ts.BankWithdrawn.Add(amount)
	ts.BankBalanceOut = entry.ResultingBalance
	ts.RefreshPercentage()
	ts.UpdatedAt = entry.CreatedAt
	return entry, nil
}

// DepositSurplus moves the month's surplus into the bank. Deposited hours are netted
// out of the effective total, so a second call for the same month finds nothing.
func (l *Ledger) DepositSurplus(ctx context.Context, ts *timesheet.MonthlyTimesheet) (*LedgerEntry, error) {
	if ts.Status == timesheet.StatusClosed {
		return nil, timesheeterrors.ErrTimesheetLocked.WithDetails(map[string]any{"status": ts.Status})
	}

	employeeID := ts.EmployeeID.String()
	if err := l.repo.LockEmployee(ctx, employeeID); err != nil {
		return nil, err
	}

	surplus := ts.Surplus()
	if surplus.IsZero() {
		return nil, nil
	}

	balance, err := l.repo.Balance(ctx, employeeID)
	if err != nil {
		return nil, err
	}
	entry, err := l.append(ctx, ts, surplus, ReasonDeposit, balance)
	if err != nil {
		return nil, err
	}
	ts.BankDeposited = ts.BankDeposited.Add(surplus)
	ts.BankBalanceOut = entry.ResultingBalance
	ts.RefreshPercentage()
	ts.UpdatedAt = entry.CreatedAt
	return entry, nil
}

// Balance reads the running balance inside the bound transaction.
func (l *Ledger) Balance(ctx context.Context, employeeID string) (decimal.Decimal, error) {
	return l.repo.Balance(ctx, employeeID)
}

func (l *Ledger) append(ctx context.Context, ts *timesheet.MonthlyTimesheet, delta decimal.Decimal, reason string, balance decimal.Decimal) (*LedgerEntry, error) {
	entry := &LedgerEntry{
		ID:               uuid.New(),
		EmployeeID:       ts.EmployeeID,
		TimesheetID:      ts.ID,
		Month:            ts.Month,
		Year:             ts.Year,
		Delta:            delta,
		Reason:           reason,
		ResultingBalance: balance.Add(delta),
		CreatedBy:        contextutil.GetUserID(ctx),
		CreatedAt:        l.now(),
	}
	if err := l.repo.Append(ctx, entry); err != nil {
		return nil, err
	}
	return entry, nil
}
