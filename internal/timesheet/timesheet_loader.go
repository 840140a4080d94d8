package timesheet

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go-pointage/internal/calendar"
	timesheeterrors "go-pointage/internal/timesheet/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// BalanceReader exposes the current hour-bank balance of an employee.
type BalanceReader interface {
	WithTx(tx *sql.Tx) BalanceReader
	Balance(ctx context.Context, employeeID string) (decimal.Decimal, error)
}

// Loader fetches an employee's timesheet for a month under row lock, creating it
// on first access and refreshing the contractual target while it is still open.
type Loader struct {
	repo     Repository
	balances BalanceReader
	calc     *calendar.Calculator
	now      func() time.Time
}

func NewLoader(repo Repository, balances BalanceReader, calc *calendar.Calculator) *Loader {
	return &Loader{
		repo:     repo,
		balances: balances,
		calc:     calc,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (l *Loader) WithTx(tx *sql.Tx) *Loader {
	return &Loader{
		repo:     l.repo.WithTx(tx),
		balances: l.balances.WithTx(tx),
		calc:     l.calc,
		now:      l.now,
	}
}

func (l *Loader) Calculator() *calendar.Calculator {
	return l.calc
}

// Acquire returns the locked timesheet; created reports whether this call inserted it.
func (l *Loader) Acquire(ctx context.Context, employeeID string, month, year int) (ts *MonthlyTimesheet, created bool, err error) {
	if err := calendar.ValidatePeriod(month, year); err != nil {
		return nil, false, err
	}
	emp, err := l.repo.FindEmployee(ctx, employeeID)
	if err != nil {
		return nil, false, mapRepositoryError(err, timesheeterrors.ErrEmployeeNotFound)
	}

	ts, err = l.repo.FindByEmployeeMonthForUpdate(ctx, employeeID, month, year)
	switch {
	case err == nil:
		if ts.Status == StatusOpen {
			if err := l.refreshTarget(ctx, ts, emp); err != nil {
				return nil, false, err
			}
		}
		return ts, false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, false, err
	}

	ts, err = l.newTimesheet(ctx, emp, month, year)
	if err != nil {
		return nil, false, err
	}
	created, err = l.repo.Create(ctx, ts)
	if err != nil {
		return nil, false, err
	}
	if !created {
		// lost the insert race, the winner's row is authoritative
		ts, err = l.repo.FindByEmployeeMonthForUpdate(ctx, employeeID, month, year)
		if err != nil {
			return nil, false, err
		}
	}
	return ts, created, nil
}

// Preview builds the timesheet a first access would create, without persisting it.
func (l *Loader) Preview(ctx context.Context, emp *EmployeeRef, month, year int) (*MonthlyTimesheet, error) {
	return l.newTimesheet(ctx, emp, month, year)
}

func (l *Loader) newTimesheet(ctx context.Context, emp *EmployeeRef, month, year int) (*MonthlyTimesheet, error) {
	contractual, err := l.calc.ContractualHoursForMonth(emp.WeeklyHours, month, year)
	if err != nil {
		return nil, err
	}
	balance, err := l.balances.Balance(ctx, emp.ID.String())
	if err != nil {
		return nil, err
	}
	closed, err := l.repo.MonthClosed(ctx, month, year)
	if err != nil {
		return nil, err
	}

	now := l.now()
	ts := &MonthlyTimesheet{
		ID:               uuid.New(),
		EmployeeID:       emp.ID,
		Month:            month,
		Year:             year,
		WeeklyHours:      emp.WeeklyHours,
		ContractualHours: contractual,
		TotalLoggedHours: decimal.Zero,
		BankWithdrawn:    decimal.Zero,
		BankDeposited:    decimal.Zero,
		BankBalanceIn:    balance,
		BankBalanceOut:   balance,
		Status:           StatusOpen,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	// a closed month never reopens, late arrivals are born closed
	if closed {
		ts.Status = StatusClosed
		ts.ClosedAt = &now
	}
	ts.RefreshPercentage()
	return ts, nil
}

func (l *Loader) refreshTarget(ctx context.Context, ts *MonthlyTimesheet, emp *EmployeeRef) error {
	contractual, err := l.calc.ContractualHoursForMonth(emp.WeeklyHours, ts.Month, ts.Year)
	if err != nil {
		return err
	}
	if ts.WeeklyHours.Equal(emp.WeeklyHours) && ts.ContractualHours.Equal(contractual) {
		return nil
	}
	ts.WeeklyHours = emp.WeeklyHours
	ts.ContractualHours = contractual
	ts.RefreshPercentage()
	ts.UpdatedAt = l.now()
	return l.repo.Update(ctx, ts)
}

// Recalculate recomputes totals and percentage of ts from its entries.
func Recalculate(ts *MonthlyTimesheet, entries []DailyEntry) {
	ts.TotalLoggedHours = SumLogged(entries)
	ts.RefreshPercentage()
}

func mapRepositoryError(err error, notFound error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return err
}
