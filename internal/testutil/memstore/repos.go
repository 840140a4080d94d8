package memstore

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go-pointage/internal/hourbank"
	"go-pointage/internal/messaging/kafka"
	"go-pointage/internal/timesheet"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const dateKey = "2006-01-02"

type timesheetRepo struct {
	store *Store
	tx    bool
}

func (r *timesheetRepo) WithTx(tx *sql.Tx) timesheet.Repository {
	return &timesheetRepo{store: r.store, tx: tx != nil}
}

func (r *timesheetRepo) FindEmployee(_ context.Context, employeeID string) (*timesheet.EmployeeRef, error) {
	var out *timesheet.EmployeeRef
	err := r.store.do("FindEmployee", r.tx, func(st *state) error {
		id, err := parseID(employeeID)
		if err != nil {
			return err
		}
		e, ok := st.employees[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		out = &e
		return nil
	})
	return out, err
}

func (r *timesheetRepo) FindActiveEmployees(context.Context) ([]timesheet.EmployeeRef, error) {
	var out []timesheet.EmployeeRef
	err := r.store.do("FindActiveEmployees", r.tx, func(st *state) error {
		for _, e := range st.employees {
			if e.IsActive {
				out = append(out, e)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
		return nil
	})
	return out, err
}

func (r *timesheetRepo) FindByEmployeeMonth(_ context.Context, employeeID string, month, year int) (*timesheet.MonthlyTimesheet, error) {
	return r.findSheet("FindByEmployeeMonth", employeeID, month, year)
}

func (r *timesheetRepo) FindByEmployeeMonthForUpdate(_ context.Context, employeeID string, month, year int) (*timesheet.MonthlyTimesheet, error) {
	return r.findSheet("FindByEmployeeMonthForUpdate", employeeID, month, year)
}

func (r *timesheetRepo) findSheet(op, employeeID string, month, year int) (*timesheet.MonthlyTimesheet, error) {
	var out *timesheet.MonthlyTimesheet
	err := r.store.do(op, r.tx, func(st *state) error {
		id, err := parseID(employeeID)
		if err != nil {
			return err
		}
		out = findSheet(st, id, month, year)
		if out == nil {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	return out, err
}

func (r *timesheetRepo) Create(_ context.Context, ts *timesheet.MonthlyTimesheet) (bool, error) {
	created := false
	err := r.store.do("Create", r.tx, func(st *state) error {
		if findSheet(st, ts.EmployeeID, ts.Month, ts.Year) != nil {
			return nil
		}
		st.timesheets[ts.ID] = *ts
		created = true
		return nil
	})
	return created, err
}

func (r *timesheetRepo) Update(_ context.Context, ts *timesheet.MonthlyTimesheet) error {
	return r.store.do("Update", r.tx, func(st *state) error {
		if _, ok := st.timesheets[ts.ID]; !ok {
			return gorm.ErrRecordNotFound
		}
		st.timesheets[ts.ID] = *ts
		return nil
	})
}

func (r *timesheetRepo) FindEntries(_ context.Context, timesheetID uuid.UUID) ([]timesheet.DailyEntry, error) {
	var out []timesheet.DailyEntry
	err := r.store.do("FindEntries", r.tx, func(st *state) error {
		out = sortedEntries(st.entries[timesheetID])
		return nil
	})
	return out, err
}

func (r *timesheetRepo) UpsertEntry(_ context.Context, e *timesheet.DailyEntry) error {
	return r.store.do("UpsertEntry", r.tx, func(st *state) error {
		m, ok := st.entries[e.TimesheetID]
		if !ok {
			m = map[string]timesheet.DailyEntry{}
			st.entries[e.TimesheetID] = m
		}
		key := e.EntryDate.Format(dateKey)
		row := *e
		if prev, ok := m[key]; ok {
			row.ID = prev.ID
			row.CreatedAt = prev.CreatedAt
		}
		m[key] = row
		return nil
	})
}

func (r *timesheetRepo) FindAllByMonth(_ context.Context, month, year int) ([]timesheet.MonthlyTimesheet, error) {
	return r.findMonth("FindAllByMonth", month, year)
}

func (r *timesheetRepo) FindAllByMonthForUpdate(_ context.Context, month, year int) ([]timesheet.MonthlyTimesheet, error) {
	return r.findMonth("FindAllByMonthForUpdate", month, year)
}

func (r *timesheetRepo) findMonth(op string, month, year int) ([]timesheet.MonthlyTimesheet, error) {
	var out []timesheet.MonthlyTimesheet
	err := r.store.do(op, r.tx, func(st *state) error {
		for _, ts := range st.timesheets {
			if ts.Month == month && ts.Year == year {
				out = append(out, ts)
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i].EmployeeID.String() < out[j].EmployeeID.String() })
		return nil
	})
	return out, err
}

func (r *timesheetRepo) CloseMonth(_ context.Context, month, year int, closedBy string, closedAt time.Time) (int64, error) {
	var n int64
	err := r.store.do("CloseMonth", r.tx, func(st *state) error {
		for id, ts := range st.timesheets {
			if ts.Month != month || ts.Year != year || ts.Status != timesheet.StatusValidated {
				continue
			}
			by, at := closedBy, closedAt
			ts.Status = timesheet.StatusClosed
			ts.ClosedBy = &by
			ts.ClosedAt = &at
			ts.UpdatedAt = closedAt
			st.timesheets[id] = ts
			n++
		}
		return nil
	})
	return n, err
}

func (r *timesheetRepo) MonthClosed(_ context.Context, month, year int) (bool, error) {
	closed := false
	err := r.store.do("MonthClosed", r.tx, func(st *state) error {
		for _, ts := range st.timesheets {
			if ts.Month == month && ts.Year == year && ts.Status == timesheet.StatusClosed {
				closed = true
				return nil
			}
		}
		return nil
	})
	return closed, err
}

type hourbankRepo struct {
	store *Store
	tx    bool
}

func (r *hourbankRepo) WithTx(tx *sql.Tx) hourbank.Repository {
	return &hourbankRepo{store: r.store, tx: tx != nil}
}

func (r *hourbankRepo) LockEmployee(context.Context, string) error {
	return r.store.do("LockEmployee", r.tx, func(*state) error {
		if !r.tx {
			return errors.New("memstore: advisory lock outside transaction")
		}
		return nil
	})
}

func (r *hourbankRepo) Balance(_ context.Context, employeeID string) (decimal.Decimal, error) {
	balance := decimal.Zero
	err := r.store.do("Balance", r.tx, func(st *state) error {
		id, err := uuid.Parse(employeeID)
		if err != nil {
			return nil
		}
		balance = sumDelta(st.ledger, id)
		return nil
	})
	return balance, err
}

func (r *hourbankRepo) Append(_ context.Context, e *hourbank.LedgerEntry) error {
	return r.store.do("Append", r.tx, func(st *state) error {
		st.seq++
		e.Seq = st.seq
		st.ledger = append(st.ledger, *e)
		return nil
	})
}

func (r *hourbankRepo) FindByEmployee(_ context.Context, employeeID string) ([]hourbank.LedgerEntry, error) {
	var out []hourbank.LedgerEntry
	err := r.store.do("FindByEmployee", r.tx, func(st *state) error {
		id, err := uuid.Parse(employeeID)
		if err != nil {
			return nil
		}
		out = ledgerOf(st, id)
		return nil
	})
	return out, err
}

type outboxRepo struct {
	store *Store
	tx    bool
}

func (r *outboxRepo) WithTx(tx *sql.Tx) kafka.OutboxRepository {
	return &outboxRepo{store: r.store, tx: tx != nil}
}

func (r *outboxRepo) Create(_ context.Context, event kafka.OutboxEvent) error {
	if err := kafka.ValidateOutboxEvent(event); err != nil {
		return err
	}
	return r.store.do("OutboxCreate", r.tx, func(st *state) error {
		st.outbox = append(st.outbox, event)
		return nil
	})
}

func (r *outboxRepo) ListPending(_ context.Context, limit int) ([]kafka.OutboxEvent, error) {
	var out []kafka.OutboxEvent
	err := r.store.do("ListPending", r.tx, func(st *state) error {
		for _, e := range st.outbox {
			if len(out) == limit {
				break
			}
			if e.Status == kafka.OutboxStatusPending || e.Status == kafka.OutboxStatusFailed {
				out = append(out, e)
			}
		}
		return nil
	})
	return out, err
}

func (r *outboxRepo) MarkSent(_ context.Context, id string) error {
	return r.mark("MarkSent", id, func(e *kafka.OutboxEvent) {
		e.Status = kafka.OutboxStatusSent
	})
}

func (r *outboxRepo) MarkFailed(_ context.Context, id string, _ string) error {
	return r.mark("MarkFailed", id, func(e *kafka.OutboxEvent) {
		e.RetryCount++
		e.Status = kafka.OutboxStatusFailed
		if e.RetryCount >= kafka.MaxOutboxAttempts {
			e.Status = kafka.OutboxStatusDead
		}
	})
}

func (r *outboxRepo) mark(op, id string, fn func(e *kafka.OutboxEvent)) error {
	return r.store.do(op, r.tx, func(st *state) error {
		for i := range st.outbox {
			if st.outbox[i].ID == id {
				fn(&st.outbox[i])
				return nil
			}
		}
		return kafka.ErrOutboxEventNotFound
	})
}
