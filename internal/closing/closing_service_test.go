package closing_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"go-pointage/internal/audit"
	"go-pointage/internal/calendar"
	"go-pointage/internal/closing"
	closingerrors "go-pointage/internal/closing/errors"
	"go-pointage/internal/events"
	"go-pointage/internal/hourbank"
	"go-pointage/internal/shared/apperror"
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

type recordingAudit struct {
	mu      sync.Mutex
	records []audit.Record
}

func (r *recordingAudit) Log(_ context.Context, rec audit.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

func (r *recordingAudit) count(entity, action string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, rec := range r.records {
		if rec.EntityType == entity && rec.Action == action {
			n++
		}
	}
	return n
}

type fixture struct {
	store      *memstore.Store
	calc       *calendar.Calculator
	audit      *recordingAudit
	timesheets timesheet.Service
	closing    closing.Service
	alice      uuid.UUID
	bruno      uuid.UUID
}

func hours(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memstore.New()
	t.Cleanup(func() { _ = store.Close() })

	alice := timesheet.EmployeeRef{ID: uuid.New(), FullName: "Alice Martin", WeeklyHours: hours("35"), IsActive: true}
	bruno := timesheet.EmployeeRef{ID: uuid.New(), FullName: "Bruno Costa", WeeklyHours: hours("35"), IsActive: true}
	store.AddEmployee(alice)
	store.AddEmployee(bruno)

	calc := calendar.NewCalculator(calendar.DefaultConfig())
	locks := keylock.New()
	rec := &recordingAudit{}
	tsRepo := store.TimesheetRepo()
	bankRepo := store.HourBankRepo()
	loader := timesheet.NewLoader(tsRepo, hourbank.NewBalanceReader(bankRepo), calc)

	return &fixture{
		store:      store,
		calc:       calc,
		audit:      rec,
		timesheets: timesheet.NewService(store.DB(), tsRepo, loader, locks, timesheet.Options{Audit: rec}, zap.NewNop()),
		closing: closing.NewService(store.DB(), tsRepo, loader, hourbank.NewLedger(bankRepo),
			store.OutboxRepo(), locks, rec, nil, zap.NewNop()),
		alice: alice.ID,
		bruno: bruno.ID,
	}
}

func (f *fixture) logMonth(t *testing.T, employeeID uuid.UUID, month, year int, perDay string) {
	t.Helper()
	days, err := f.calc.BusinessDaysInMonth(month, year)
	require.NoError(t, err)
	in := make([]timesheet.EntryInput, len(days))
	for i, d := range days {
		in[i] = timesheet.EntryInput{Date: d, Hours: hours(perDay), DayType: timesheet.DayTypeWork}
	}
	_, err = f.timesheets.BatchUpsert(context.Background(), employeeID.String(), in)
	require.NoError(t, err)
}

func supervisorCtx() context.Context {
	ctx := contextutil.WithActor(context.Background(), contextutil.Actor{UserID: "sup-1", Role: "SUPERVISOR"})
	return contextutil.WithRequestID(ctx, "req-42")
}

func TestClosing_EndToEndJanuary(t *testing.T) {
	ctx := supervisorCtx()
	f := newFixture(t)

	f.logMonth(t, f.alice, 1, 2024, "7")

	validated, err := f.closing.Validate(ctx, f.alice.String(), 1, 2024)
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusValidated, validated.Timesheet.Status)
	assert.Equal(t, 100, validated.Timesheet.Percentage)
	assert.True(t, validated.Timesheet.Surplus.IsZero())
	assert.Nil(t, validated.Deposit)
	require.NotNil(t, validated.Timesheet.ValidatedBy)
	assert.Equal(t, "sup-1", *validated.Timesheet.ValidatedBy)
	assert.Empty(t, f.store.Ledger(f.alice))

	closed, err := f.closing.Close(ctx, 1, 2024)
	require.NoError(t, err)
	assert.Equal(t, int64(1), closed.Closed)

	ts, ok := f.store.Timesheet(f.alice, 1, 2024)
	require.True(t, ok)
	assert.Equal(t, timesheet.StatusClosed, ts.Status)
	require.NotNil(t, ts.ClosedBy)
	assert.Equal(t, "sup-1", *ts.ClosedBy)

	_, err = f.timesheets.UpsertDailyEntry(ctx, f.alice.String(), timesheet.EntryInput{
		Date:    time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC),
		Hours:   hours("1"),
		DayType: timesheet.DayTypeWork,
	})
	assert.ErrorIs(t, err, timesheeterrors.ErrTimesheetLocked)

	outbox := f.store.Outbox()
	require.Len(t, outbox, 1)
	assert.Equal(t, events.MonthClosedTopic, outbox[0].Topic)
	assert.Equal(t, "2024-01", outbox[0].AggregateID)
	assert.Equal(t, "req-42", outbox[0].RequestID)

	var event events.MonthClosedEvent
	require.NoError(t, json.Unmarshal(outbox[0].Payload, &event))
	assert.Equal(t, events.MonthClosedEventType, event.EventType)
	assert.Equal(t, int64(1), event.Closed)
	assert.Equal(t, "sup-1", event.ClosedBy)

	assert.Equal(t, 1, f.audit.count(audit.EntityTimesheet, "validate"))
	assert.Equal(t, 1, f.audit.count(audit.EntityMonth, "close"))
}

func TestClosing_LateSheetIsBornClosed(t *testing.T) {
	ctx := supervisorCtx()
	f := newFixture(t)
	_, err := f.closing.Validate(ctx, f.alice.String(), 1, 2024)
	require.NoError(t, err)
	_, err = f.closing.Close(ctx, 1, 2024)
	require.NoError(t, err)

	late, err := f.timesheets.GetMonthlyTimesheet(ctx, f.bruno.String(), 1, 2024)
	require.NoError(t, err)
	assert.Equal(t, timesheet.StatusClosed, late.Status)

	_, err = f.closing.Validate(ctx, f.bruno.String(), 1, 2024)
	assert.ErrorIs(t, err, closingerrors.ErrInvalidStateTransition)
}

func TestClosing_Validate(t *testing.T) {
	ctx := supervisorCtx()

	t.Run("deposits surplus", func(t *testing.T) {
		f := newFixture(t)
		f.logMonth(t, f.alice, 1, 2024, "8")

		resp, err := f.closing.Validate(ctx, f.alice.String(), 1, 2024)
		require.NoError(t, err)
		require.NotNil(t, resp.Deposit)
		assert.True(t, resp.Deposit.Delta.Equal(hours("23")))
		assert.True(t, resp.Timesheet.BankBalanceOut.Equal(hours("23")))
		assert.True(t, resp.Timesheet.BankDeposited.Equal(hours("23")))
		assert.True(t, f.store.Balance(f.alice).Equal(hours("23")))
	})

	t.Run("deficit is not covered automatically", func(t *testing.T) {
		f := newFixture(t)
		f.store.Seed(f.alice, hours("10"))
		f.logMonth(t, f.alice, 1, 2024, "6")

		resp, err := f.closing.Validate(ctx, f.alice.String(), 1, 2024)
		require.NoError(t, err)
		assert.Nil(t, resp.Deposit)
		assert.True(t, resp.Timesheet.Deficit.Equal(hours("23")))
		assert.True(t, resp.Timesheet.BankBalanceOut.Equal(hours("10")))
	})

	t.Run("validating twice is an invalid transition", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.closing.Validate(ctx, f.alice.String(), 1, 2024)
		require.NoError(t, err)

		_, err = f.closing.Validate(ctx, f.alice.String(), 1, 2024)
		require.ErrorIs(t, err, closingerrors.ErrInvalidStateTransition)

		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, timesheet.StatusValidated, appErr.Details["from"])
		assert.Len(t, f.store.Ledger(f.alice), 0)
	})

	t.Run("unknown employee", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.closing.Validate(ctx, uuid.NewString(), 1, 2024)
		assert.ErrorIs(t, err, timesheeterrors.ErrEmployeeNotFound)
		_, err = f.closing.Validate(ctx, "x", 1, 2024)
		assert.ErrorIs(t, err, timesheeterrors.ErrInvalidEmployeeID)
	})
}

func TestClosing_Close(t *testing.T) {
	ctx := supervisorCtx()

	t.Run("blocked by open sheets", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.closing.Validate(ctx, f.alice.String(), 1, 2024)
		require.NoError(t, err)
		_, err = f.timesheets.OpenMonth(ctx, f.bruno.String(), 1, 2024)
		require.NoError(t, err)

		_, err = f.closing.Close(ctx, 1, 2024)
		require.ErrorIs(t, err, closingerrors.ErrNotAllValidated)

		var appErr *apperror.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, []string{f.bruno.String()}, appErr.Details["employee_ids"])

		ts, _ := f.store.Timesheet(f.alice, 1, 2024)
		assert.Equal(t, timesheet.StatusValidated, ts.Status)
		assert.Empty(t, f.store.Outbox())
	})

	t.Run("repeated close is a no-op", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.closing.Validate(ctx, f.alice.String(), 1, 2024)
		require.NoError(t, err)

		first, err := f.closing.Close(ctx, 1, 2024)
		require.NoError(t, err)
		assert.Equal(t, int64(1), first.Closed)

		second, err := f.closing.Close(ctx, 1, 2024)
		require.NoError(t, err)
		assert.Equal(t, int64(0), second.Closed)

		assert.Len(t, f.store.Outbox(), 1)
		assert.Equal(t, 1, f.audit.count(audit.EntityMonth, "close"))
	})

	t.Run("empty month", func(t *testing.T) {
		f := newFixture(t)
		resp, err := f.closing.Close(ctx, 6, 2024)
		require.NoError(t, err)
		assert.Equal(t, int64(0), resp.Closed)
		assert.Empty(t, f.store.Outbox())
	})

	t.Run("outbox failure rolls back the close", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.closing.Validate(ctx, f.alice.String(), 1, 2024)
		require.NoError(t, err)

		boom := errors.New("outbox down")
		f.store.FailOn("OutboxCreate", 0, boom)
		_, err = f.closing.Close(ctx, 1, 2024)
		require.ErrorIs(t, err, boom)

		ts, _ := f.store.Timesheet(f.alice, 1, 2024)
		assert.Equal(t, timesheet.StatusValidated, ts.Status)
		assert.Equal(t, 0, f.audit.count(audit.EntityMonth, "close"))
	})

	t.Run("invalid period", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.closing.Close(ctx, 0, 2024)
		assert.Error(t, err)
	})
}
