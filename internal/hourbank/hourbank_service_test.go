package hourbank_test

import (
	"context"
	"math/rand"
	"testing"

	"go-pointage/internal/audit"
	"go-pointage/internal/calendar"
	"go-pointage/internal/hourbank"
	hourbankerrors "go-pointage/internal/hourbank/errors"
	"go-pointage/internal/shared/contextutil"
	"go-pointage/internal/shared/keylock"
	"go-pointage/internal/testutil/memstore"
	"go-pointage/internal/timesheet"
	timesheeterrors "go-pointage/internal/timesheet/errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	store      *memstore.Store
	calc       *calendar.Calculator
	timesheets timesheet.Service
	bank       hourbank.Service
	employeeID string
	employee   uuid.UUID
}

func hours(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	t.Cleanup(func() { _ = store.Close() })

	emp := timesheet.EmployeeRef{ID: uuid.New(), FullName: "Alice Martin", WeeklyHours: hours("35"), IsActive: true}
	store.AddEmployee(emp)

	calc := calendar.NewCalculator(calendar.DefaultConfig())
	locks := keylock.New()
	tsRepo := store.TimesheetRepo()
	bankRepo := store.HourBankRepo()
	loader := timesheet.NewLoader(tsRepo, hourbank.NewBalanceReader(bankRepo), calc)

	return &fixture{
		store:      store,
		calc:       calc,
		timesheets: timesheet.NewService(store.DB(), tsRepo, loader, locks, timesheet.Options{}, zap.NewNop()),
		bank:       hourbank.NewService(store.DB(), bankRepo, tsRepo, loader, locks, audit.Nop(), nil, zap.NewNop()),
		employeeID: emp.ID.String(),
		employee:   emp.ID,
	}
}

// logMonth fills every business day with perDay hours, then trims the last day by short.
func (f *fixture) logMonth(t *testing.T, month, year int, perDay, short string) timesheet.TimesheetResponse {
	t.Helper()
	days, err := f.calc.BusinessDaysInMonth(month, year)
	require.NoError(t, err)
	in := make([]timesheet.EntryInput, len(days))
	for i, d := range days {
		in[i] = timesheet.EntryInput{Date: d, Hours: hours(perDay), DayType: timesheet.DayTypeWork}
	}
	in[len(in)-1].Hours = in[len(in)-1].Hours.Sub(hours(short))
	resp, err := f.timesheets.BatchUpsert(context.Background(), f.employeeID, in)
	require.NoError(t, err)
	return resp
}

func TestHourBankService_Withdraw(t *testing.T) {
	ctx := contextutil.WithActor(context.Background(), contextutil.Actor{UserID: "user-1"})

	t.Run("caps at deficit", func(t *testing.T) {
		f := newFixture(t)
		f.store.Seed(f.employee, hours("20"))
		ts := f.logMonth(t, 1, 2024, "7", "5")
		require.True(t, ts.Deficit.Equal(hours("5")))

		resp, err := f.bank.Withdraw(ctx, f.employeeID, 1, 2024, hours("12"))
		require.NoError(t, err)

		require.NotNil(t, resp.Entry)
		assert.True(t, resp.Entry.Delta.Equal(hours("-5")), resp.Entry.Delta.String())
		assert.Equal(t, hourbank.ReasonWithdrawal, resp.Entry.Reason)
		assert.True(t, resp.Balance.Equal(hours("15")))
		assert.True(t, resp.Timesheet.BankWithdrawn.Equal(hours("5")))
		assert.True(t, resp.Timesheet.Deficit.IsZero())
		assert.Equal(t, 100, resp.Timesheet.Percentage)
		assert.True(t, resp.Timesheet.BankBalanceOut.Equal(hours("15")))

		assert.True(t, f.store.Balance(f.employee).Equal(hours("15")))
		rows := f.store.Ledger(f.employee)
		require.Len(t, rows, 2)
		assert.Equal(t, "user-1", rows[1].CreatedBy)
	})

	t.Run("insufficient balance leaves state untouched", func(t *testing.T) {
		f := newFixture(t)
		f.store.Seed(f.employee, hours("3"))
		f.logMonth(t, 1, 2024, "7", "5")

		_, err := f.bank.Withdraw(ctx, f.employeeID, 1, 2024, hours("12"))
		require.ErrorIs(t, err, hourbankerrors.ErrInsufficientBankBalance)

		assert.True(t, f.store.Balance(f.employee).Equal(hours("3")))
		ts, ok := f.store.Timesheet(f.employee, 1, 2024)
		require.True(t, ok)
		assert.True(t, ts.BankWithdrawn.IsZero())
	})

	t.Run("nothing to cover moves nothing", func(t *testing.T) {
		f := newFixture(t)
		f.store.Seed(f.employee, hours("10"))
		f.logMonth(t, 1, 2024, "7", "0")

		resp, err := f.bank.Withdraw(ctx, f.employeeID, 1, 2024, hours("2"))
		require.NoError(t, err)
		assert.Nil(t, resp.Entry)
		assert.True(t, resp.Balance.Equal(hours("10")))
		assert.Len(t, f.store.Ledger(f.employee), 1)
	})

	t.Run("rejects non positive hours", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.bank.Withdraw(ctx, f.employeeID, 1, 2024, decimal.Zero)
		assert.ErrorIs(t, err, hourbankerrors.ErrInvalidHours)
		_, err = f.bank.Withdraw(ctx, f.employeeID, 1, 2024, hours("-1"))
		assert.ErrorIs(t, err, hourbankerrors.ErrInvalidHours)
	})

	t.Run("rejects hours finer than the stored scale", func(t *testing.T) {
		f := newFixture(t)
		f.store.Seed(f.employee, hours("20"))
		f.logMonth(t, 1, 2024, "7", "5")

		_, err := f.bank.Withdraw(ctx, f.employeeID, 1, 2024, hours("1.005"))
		require.ErrorIs(t, err, hourbankerrors.ErrHoursPrecision)
		assert.Len(t, f.store.Ledger(f.employee), 1)

		resp, err := f.bank.Withdraw(ctx, f.employeeID, 1, 2024, hours("1.50"))
		require.NoError(t, err)
		assert.True(t, resp.Balance.Equal(hours("18.5")))
	})

	t.Run("locked sheet", func(t *testing.T) {
		f := newFixture(t)
		f.store.Seed(f.employee, hours("10"))
		f.store.PutTimesheet(timesheet.MonthlyTimesheet{
			ID:               uuid.New(),
			EmployeeID:       f.employee,
			Month:            1,
			Year:             2024,
			WeeklyHours:      hours("35"),
			ContractualHours: hours("161"),
			Status:           timesheet.StatusValidated,
		})

		_, err := f.bank.Withdraw(ctx, f.employeeID, 1, 2024, hours("2"))
		assert.ErrorIs(t, err, timesheeterrors.ErrTimesheetLocked)
	})

	t.Run("second withdraw is capped by remaining deficit", func(t *testing.T) {
		f := newFixture(t)
		f.store.Seed(f.employee, hours("20"))
		f.logMonth(t, 1, 2024, "7", "5")

		_, err := f.bank.Withdraw(ctx, f.employeeID, 1, 2024, hours("3"))
		require.NoError(t, err)
		resp, err := f.bank.Withdraw(ctx, f.employeeID, 1, 2024, hours("3"))
		require.NoError(t, err)

		require.NotNil(t, resp.Entry)
		assert.True(t, resp.Entry.Delta.Equal(hours("-2")))
		assert.True(t, resp.Balance.Equal(hours("15")))
	})
}

func TestHourBankService_DepositSurplus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.logMonth(t, 1, 2024, "8", "0")

	resp, err := f.bank.DepositSurplus(ctx, f.employeeID, 1, 2024)
	require.NoError(t, err)
	require.NotNil(t, resp.Entry)
	assert.True(t, resp.Entry.Delta.Equal(hours("23")))
	assert.True(t, resp.Balance.Equal(hours("23")))
	assert.True(t, resp.Timesheet.Surplus.IsZero())
	assert.Equal(t, 100, resp.Timesheet.Percentage)

	again, err := f.bank.DepositSurplus(ctx, f.employeeID, 1, 2024)
	require.NoError(t, err)
	assert.Nil(t, again.Entry)
	assert.True(t, again.Balance.Equal(hours("23")))
}

func TestHourBankService_DepositSurplusOnClosedSheet(t *testing.T) {
	f := newFixture(t)
	f.store.PutTimesheet(timesheet.MonthlyTimesheet{
		ID:               uuid.New(),
		EmployeeID:       f.employee,
		Month:            1,
		Year:             2024,
		WeeklyHours:      hours("35"),
		ContractualHours: hours("161"),
		TotalLoggedHours: hours("184"),
		Status:           timesheet.StatusClosed,
	})

	_, err := f.bank.DepositSurplus(context.Background(), f.employeeID, 1, 2024)
	require.ErrorIs(t, err, timesheeterrors.ErrTimesheetLocked)
	assert.Empty(t, f.store.Ledger(f.employee))
}

func TestHourBankService_Reads(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.store.Seed(f.employee, hours("4"), hours("2.5"))

	balance, err := f.bank.GetBalance(ctx, f.employeeID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(hours("6.5")))

	rows, err := f.bank.GetLedger(ctx, f.employeeID)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.True(t, rows[1].ResultingBalance.Equal(hours("6.5")))

	_, err = f.bank.GetBalance(ctx, "nope")
	assert.ErrorIs(t, err, timesheeterrors.ErrInvalidEmployeeID)
	_, err = f.bank.GetLedger(ctx, uuid.NewString())
	assert.ErrorIs(t, err, timesheeterrors.ErrEmployeeNotFound)
}

// Random movements over a year must keep the ledger consistent: each row's
// resulting balance chains from the previous one and never drops below zero.
func TestHourBankService_BalanceConservation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	rng := rand.New(rand.NewSource(20240101))

	// the sheet a movement touched carries the post-operation running balance
	checkTouched := func(resp hourbank.MovementResponse) {
		t.Helper()
		sum := f.store.Balance(f.employee)
		require.True(t, resp.Balance.Equal(sum), "balance %s, ledger sum %s", resp.Balance, sum)
		require.True(t, resp.Timesheet.BankBalanceOut.Equal(sum), "balance out %s, ledger sum %s", resp.Timesheet.BankBalanceOut, sum)
		stored, ok := f.store.Timesheet(f.employee, resp.Timesheet.Month, resp.Timesheet.Year)
		require.True(t, ok)
		require.True(t, stored.BankBalanceOut.Equal(sum))
	}

	for month := 1; month <= 12; month++ {
		days, err := f.calc.BusinessDaysInMonth(month, 2024)
		require.NoError(t, err)
		in := make([]timesheet.EntryInput, 0, len(days))
		for _, d := range days {
			h := decimal.New(int64(rng.Intn(21)+50), -1) // 5.0 .. 7.0
			in = append(in, timesheet.EntryInput{Date: d, Hours: h, DayType: timesheet.DayTypeWork})
		}
		_, err = f.timesheets.BatchUpsert(ctx, f.employeeID, in)
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			switch rng.Intn(3) {
			case 0:
				resp, err := f.bank.DepositSurplus(ctx, f.employeeID, month, 2024)
				require.NoError(t, err)
				checkTouched(resp)
			default:
				req := decimal.New(int64(rng.Intn(200)+1), -1)
				resp, err := f.bank.Withdraw(ctx, f.employeeID, month, 2024, req)
				if err != nil {
					require.ErrorIs(t, err, hourbankerrors.ErrInsufficientBankBalance)
					continue
				}
				checkTouched(resp)
			}
		}

		// top up a month with overtime so later months have something to draw on
		if month%3 == 0 {
			_, err = f.timesheets.UpsertDailyEntry(ctx, f.employeeID, timesheet.EntryInput{Date: days[0], Hours: hours("24"), DayType: timesheet.DayTypeWork})
			require.NoError(t, err)
			resp, err := f.bank.DepositSurplus(ctx, f.employeeID, month, 2024)
			require.NoError(t, err)
			checkTouched(resp)
		}
	}

	rows := f.store.Ledger(f.employee)
	running := decimal.Zero
	for i, r := range rows {
		require.True(t, r.ResultingBalance.Equal(running.Add(r.Delta)), "row %d", i)
		running = r.ResultingBalance
		assert.False(t, running.IsNegative(), "row %d", i)
		if i > 0 {
			assert.Greater(t, r.Seq, rows[i-1].Seq)
		}
	}
	assert.True(t, f.store.Balance(f.employee).Equal(running))
	balance, err := f.bank.GetBalance(ctx, f.employeeID)
	require.NoError(t, err)
	assert.True(t, balance.Balance.Equal(running), balance.Balance.String())

	for month := 1; month <= 12; month++ {
		ts, ok := f.store.Timesheet(f.employee, month, 2024)
		require.True(t, ok)
		assert.False(t, ts.BankWithdrawn.IsNegative())
		assert.False(t, ts.Deficit().IsNegative())
	}
}
